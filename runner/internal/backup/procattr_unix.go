//go:build unix

package backup

import (
	"os/exec"
	"syscall"
)

// detach starts cmd in its own process group so a terminal interrupt sent
// to the runner's group does not reach the backup tool.
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
