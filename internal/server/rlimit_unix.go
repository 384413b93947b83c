//go:build unix

package server

import "golang.org/x/sys/unix"

// raiseFileLimit raises RLIMIT_NOFILE to its hard limit, best-effort
// (§4.7: "raise RLIMIT_NOFILE to its hard limit (best-effort, ignore
// failures)"). Failures are swallowed by the caller; this only reports
// them for the startup error line on stderr.
func raiseFileLimit() error {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return err
	}
	rl.Cur = rl.Max
	return unix.Setrlimit(unix.RLIMIT_NOFILE, &rl)
}
