//go:build !windows && !darwin

package opener

import "os/exec"

func open(target string) error {
	return exec.Command("xdg-open", target).Start()
}
