//go:build unix

package watcher

import "golang.org/x/sys/unix"

// execImage replaces the current process image, keeping its PID.
func execImage(argv0 string, argv []string, envv []string) error {
	return unix.Exec(argv0, argv, envv)
}
