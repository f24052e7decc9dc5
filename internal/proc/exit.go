package proc

import (
	"os"
	"syscall"
)

// signalBase is the offset shells add to a terminating signal number.
const signalBase = 128

// NormalizeExit converts a finished process state into the value a POSIX
// shell would show in $?, plus the signal name when the process was killed.
//
// Exit statuses are reduced modulo 256, so a program calling exit(-1) is
// observed as 255 and exit(256) as 0. Windows reports 32-bit statuses; only
// the low byte survives here as well.
func NormalizeExit(ps *os.ProcessState) (code int, signal string) {
	if ps == nil {
		return NoExitCode, ""
	}
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		sig := ws.Signal()
		return signalBase + int(sig), sig.String()
	}
	return WrapStatus(ps.ExitCode()), ""
}

// WrapStatus maps any integer status onto 0..255.
func WrapStatus(status int) int {
	return ((status % 256) + 256) % 256
}
