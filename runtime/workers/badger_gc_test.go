package workers

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func TestBadgerGC_Run_Stops_On_Cancel(t *testing.T) {
	req := require.New(t)
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	req.NoError(err)
	t.Cleanup(func() { _ = db.Close() })

	// Given some deleted keys for the collector to look at
	for i := 0; i < 100; i++ {
		key := []byte(fmt.Sprintf("msg:%03d", i))
		req.NoError(db.Update(func(txn *badger.Txn) error { return txn.Set(key, []byte("value")) }))
		req.NoError(db.Update(func(txn *badger.Txn) error { return txn.Delete(key) }))
	}

	worker := NewBadgerGC(logs.GetLoggerFromLevel(slog.LevelDebug), db, 10*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err = worker.Run(ctx)

	req.ErrorIs(err, context.DeadlineExceeded)
}
