/*
Package resilience provides a circuit breaker for components that should stop
retrying something that keeps failing.

# Overview

termhost uses one breaker per backend tier: when a tier fails to spawn a
shell several times in a row, the probe skips it for a cooldown instead of
paying the failed spawn on every session create.

# Usage

	breaker := resilience.New("native-pty", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	backend, err := resilience.Call(breaker, func() (terminal.Backend, error) {
		return spawn(ctx, spec)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
