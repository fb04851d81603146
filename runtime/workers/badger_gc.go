package workers

import (
	"context"
	goerrors "errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const gcDiscardRatio = 0.5

// BadgerGC reclaims value log space left by cleared conversations and expired revocations.
type BadgerGC struct {
	log      *slog.Logger
	db       *badger.DB
	interval time.Duration
}

func NewBadgerGC(log *slog.Logger, db *badger.DB, interval time.Duration) *BadgerGC {
	return &BadgerGC{log: log, db: db, interval: interval}
}

func (w *BadgerGC) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.collect()
		}
	}
}

// collect runs the value log GC until a pass has nothing left to rewrite.
func (w *BadgerGC) collect() {
	rewrites := 0
	for {
		err := w.db.RunValueLogGC(gcDiscardRatio)
		if err == nil {
			rewrites++
			continue
		}
		if !goerrors.Is(err, badger.ErrNoRewrite) {
			w.log.Warn("Badger value log GC failed", "error", err)
		}
		break
	}
	if rewrites > 0 {
		w.log.Debug("Badger value log GC done", "rewrites", rewrites)
	}
}
