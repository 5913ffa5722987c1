package indexer

import (
	"go.uber.org/zap"

	"github.com/alexeynavarkin/s3index/internal/repository/index_repo"
)

// Observer receives progress and recoverable-failure events from Index.
// Calls are made synchronously from the goroutine running Index.
type Observer interface {
	ContainerStarted(container string)
	ListFailed(container string, err error)
	RowFailed(rowErr index_repo.RowError)
	// BatchSaved is called after every saved batch; n counts from 1.
	BatchSaved(n int, container string, res index_repo.SaveResult, totalInserted int)
}

// LogObserver writes events to a zap logger.
type LogObserver struct {
	lg *zap.Logger
}

func NewLogObserver(lg *zap.Logger) *LogObserver {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &LogObserver{lg: lg}
}

func (o *LogObserver) ContainerStarted(container string) {
	o.lg.Info("listing keys from bucket", zap.String("bucket", container))
}

func (o *LogObserver) ListFailed(container string, err error) {
	o.lg.Error("error accessing bucket", zap.String("bucket", container), zap.Error(err))
}

func (o *LogObserver) RowFailed(rowErr index_repo.RowError) {
	o.lg.Warn("error saving key",
		zap.String("bucket", rowErr.Object.Bucket),
		zap.String("key", rowErr.Object.Key),
		zap.Bool("conflict", rowErr.Conflict()),
		zap.Error(rowErr.Err),
	)
}

func (o *LogObserver) BatchSaved(n int, container string, res index_repo.SaveResult, totalInserted int) {
	o.lg.Info("batch saved",
		zap.Int("batch", n),
		zap.String("bucket", container),
		zap.Int("saved", res.Inserted),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", len(res.Failures)),
		zap.Int("total_saved", totalInserted),
	)
}
