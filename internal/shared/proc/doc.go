// Package proc holds process-group helpers shared by the interactive session
// backends and the one-shot executor.
//
// Every child is started as the leader of its own process group so a single
// signal reaches the shell and anything it spawned:
//
//	cmd := exec.Command("/bin/sh", "-c", "sleep 10 & wait")
//	proc.SetProcessGroup(cmd)
//	_ = cmd.Start()
//	_ = proc.KillGroup(cmd.Process)
//
// On platforms without process groups the helpers fall back to signalling the
// direct child only.
package proc
