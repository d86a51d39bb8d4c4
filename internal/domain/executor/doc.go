// Package executor runs a single shell command to completion and captures its
// result, for callers that want "run this and tell me what happened" rather
// than an interactive stream.
//
// Guarantees:
//   - a hard wall-clock timeout that kills the command's whole process group
//   - stdout and stderr captured independently, each bounded in size
//   - both streams returned even when the command exits non-zero
//
// Example Usage:
//
//	exec := executor.New(executor.DefaultConfig())
//	res := exec.Run(ctx, executor.Request{Command: "git status", Dir: "/repo"})
//	if !res.Success {
//	    log.Println(res.Error, res.Stderr)
//	}
package executor
