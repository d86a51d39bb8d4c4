package terminal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/termhost/internal/infrastructure/resilience"
)

// Tier is one backend strategy in the probe chain.
type Tier struct {
	Kind  Kind
	Spawn SpawnFunc
}

// DefaultTiers returns the full chain in priority order. emulator overrides
// the helper discovered on PATH.
func DefaultTiers(emulator string) []Tier {
	tiers, _ := TiersFor([]Kind{KindNativePTY, KindEmulatedPTY, KindPlainPipe}, emulator)
	return tiers
}

// TiersFor builds a chain restricted to kinds, in the given order.
func TiersFor(kinds []Kind, emulator string) ([]Tier, error) {
	tiers := make([]Tier, 0, len(kinds))
	for _, k := range kinds {
		switch k {
		case KindNativePTY:
			tiers = append(tiers, Tier{Kind: k, Spawn: SpawnNativePTY})
		case KindEmulatedPTY:
			tiers = append(tiers, Tier{Kind: k, Spawn: SpawnEmulatedPTY(emulator)})
		case KindPlainPipe:
			tiers = append(tiers, Tier{Kind: k, Spawn: SpawnPlainPipe})
		default:
			return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidArgument, k)
		}
	}
	return tiers, nil
}

// Prober walks the tier chain and returns the first backend that starts.
type Prober struct {
	tiers    []Tier
	breakers map[Kind]*resilience.Breaker
	logger   *zap.Logger
	observer Observer
}

// NewProber creates a prober over tiers. Probing is repeated on every call.
func NewProber(tiers []Tier) *Prober {
	return &Prober{
		tiers:    tiers,
		logger:   zap.NewNop(),
		observer: nopObserver{},
	}
}

// WithLogger adds logging of tier fallbacks.
func (p *Prober) WithLogger(logger *zap.Logger) *Prober {
	if logger != nil {
		p.logger = logger
	}
	return p
}

// WithObserver reports per-tier spawn failures.
func (p *Prober) WithObserver(o Observer) *Prober {
	if o != nil {
		p.observer = o
	}
	return p
}

// WithBreakers skips a tier for cooldown after it failed failures times in a
// row. A skipped tier counts as failed, so the chain still falls through and
// exhaustion is still reported.
func (p *Prober) WithBreakers(failures uint32, cooldown time.Duration) *Prober {
	p.breakers = make(map[Kind]*resilience.Breaker, len(p.tiers))
	for _, t := range p.tiers {
		kind := t.Kind
		p.breakers[kind] = resilience.New(string(kind), resilience.Settings{
			Timeout: cooldown,
			ReadyToTrip: func(c resilience.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
			},
			OnStateChange: func(name string, from, to resilience.State) {
				p.logger.Info("Backend tier breaker changed state",
					zap.String("backend", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
	return p
}

// Kinds lists the chain in priority order.
func (p *Prober) Kinds() []Kind {
	kinds := make([]Kind, len(p.tiers))
	for i, t := range p.tiers {
		kinds[i] = t.Kind
	}
	return kinds
}

// Probe returns the first backend that starts. Tier failures are logged and
// only surfaced, joined, when every tier failed.
func (p *Prober) Probe(ctx context.Context, spec SpawnSpec) (Backend, error) {
	var errs []error
	for _, t := range p.tiers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		b, err := p.spawn(ctx, t, spec)
		if err == nil {
			return b, nil
		}

		errs = append(errs, fmt.Errorf("%s: %w", t.Kind, err))
		if !errors.Is(err, ErrTierUnavailable) {
			p.observer.SpawnFailed(string(t.Kind))
		}
		p.logger.Warn("Backend tier failed, falling back",
			zap.String("backend", string(t.Kind)),
			zap.Error(err),
		)
	}
	return nil, fmt.Errorf("%w: %w", ErrSpawnFailure, errors.Join(errs...))
}

func (p *Prober) spawn(ctx context.Context, t Tier, spec SpawnSpec) (Backend, error) {
	breaker, ok := p.breakers[t.Kind]
	if !ok {
		return t.Spawn(ctx, spec)
	}

	b, err := resilience.Call(breaker, func() (Backend, error) {
		return t.Spawn(ctx, spec)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) || errors.Is(err, resilience.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrTierUnavailable, err)
	}
	return b, err
}
