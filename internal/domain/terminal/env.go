package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// fallbackShells are tried when neither the configuration nor $SHELL names a
// usable shell.
var fallbackShells = []string{"/bin/bash", "/bin/sh"}

// ResolveShell returns the absolute path of the shell to spawn: the configured
// shell, the user's $SHELL, then the hard-coded fallbacks.
func ResolveShell(configured string) (string, error) {
	candidates := append([]string{configured, os.Getenv("SHELL")}, fallbackShells...)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: no shell binary could be resolved", ErrSpawnFailure)
}

// ResolveDir returns an absolute, existing working directory. An empty dir
// means the host process's current directory.
func ResolveDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		dir = wd
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: working directory %q: %v", ErrInvalidArgument, dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: working directory does not exist: %s", ErrInvalidArgument, abs)
	}
	return abs, nil
}

// BaseEnv is the environment every tier starts from.
func BaseEnv(extra []string) []string {
	env := append(os.Environ(), "TERM=xterm-256color", "COLORTERM=truecolor")
	return append(env, extra...)
}

// sizedEnv reports the terminal size through variables for tiers that cannot
// use the OS terminal layer.
func sizedEnv(spec SpawnSpec) []string {
	env := make([]string, 0, len(spec.Env)+2)
	env = append(env, spec.Env...)
	return append(env,
		"COLUMNS="+strconv.Itoa(spec.Cols),
		"LINES="+strconv.Itoa(spec.Rows),
	)
}
