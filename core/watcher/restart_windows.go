//go:build windows

package watcher

import (
	"os"
	"os/exec"
)

// execImage starts a replacement process with inherited stdio and exits.
// Windows has no in-place exec.
func execImage(argv0 string, argv []string, envv []string) error {
	cmd := exec.Command(argv0, argv[1:]...)
	cmd.Env = envv
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	os.Exit(0)
	return nil
}
