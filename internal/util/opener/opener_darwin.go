//go:build darwin

package opener

import "os/exec"

func open(target string) error {
	return exec.Command("open", target).Start()
}
