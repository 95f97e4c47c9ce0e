// notify/notify.go
package notify

import (
	"log/slog"

	"github.com/otrenterprises/tiltedtrades/stats"
)

// Notifier delivers a best-effort "recomputation complete" signal. It is
// always invoked on a detached goroutine: a slow or failing notifier must
// never block or fail the pipeline, so errors are only logged.
type Notifier interface {
	RecomputeComplete(userID string, snap stats.Snapshot) error
}

// LogNotifier writes the completion signal to the log. It stands in for an
// email or push delivery backend.
type LogNotifier struct {
	Log *slog.Logger
}

func (n *LogNotifier) RecomputeComplete(userID string, snap stats.Snapshot) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}
	log.Info("recompute complete",
		"user", userID,
		"trades", snap.TotalTrades,
		"net_pl", snap.NetPL,
	)
	return nil
}
