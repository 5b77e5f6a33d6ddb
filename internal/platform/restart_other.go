//go:build !unix

package platform

import (
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/logging"
)

// ExecRestarter exits with ExitRestart and leaves the restart to the
// service manager; in-place exec is not available on this platform.
type ExecRestarter struct {
	Delay time.Duration
}

// Restart implements orchestrator.Restarter.
func (r ExecRestarter) Restart(reason string) {
	logging.Warn("Restarting agent", zap.String("reason", reason), zap.Duration("delay", r.Delay))
	if r.Delay > 0 {
		time.Sleep(r.Delay)
	}
	logging.Sync()
	os.Exit(ExitRestart)
}
