//go:build unix

package platform

import (
	"os"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/onebiot/onebiot/internal/logging"
)

// ExecRestarter restarts the agent by re-executing its own binary in place.
type ExecRestarter struct {
	// Delay is waited before the exec so responses can drain.
	Delay time.Duration
}

// Restart implements orchestrator.Restarter. It only returns if the exec
// failed, in which case the process exits and leaves the restart to the
// service manager.
func (r ExecRestarter) Restart(reason string) {
	logging.Warn("Restarting agent", zap.String("reason", reason), zap.Duration("delay", r.Delay))
	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
	logging.Sync()

	exe, err := os.Executable()
	if err == nil {
		err = unix.Exec(exe, os.Args, os.Environ())
	}
	logging.Error("Re-exec failed, exiting", zap.Error(err))
	logging.Sync()
	os.Exit(ExitRestart)
}
