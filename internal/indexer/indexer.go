package indexer

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/alexeynavarkin/s3index/internal/connector"
	"github.com/alexeynavarkin/s3index/internal/listing"
	"github.com/alexeynavarkin/s3index/internal/repository/index_repo"
)

const DefaultBatchSize = 100

// Report sums up one Index run. Warnings joins every recoverable failure
// (container listing errors and rows that could not be saved).
type Report struct {
	Batches  int
	Inserted int
	Skipped  int
	Failed   int
	Warnings error
}

type Indexer struct {
	index    index_repo.Index
	con      connector.Connector
	lg       *zap.Logger
	observer Observer
}

type Option func(*Indexer)

func WithObserver(o Observer) Option {
	return func(i *Indexer) {
		i.observer = o
	}
}

func NewIndexer(
	idx index_repo.Index,
	con connector.Connector,
	lg *zap.Logger,
	opts ...Option,
) *Indexer {
	if lg == nil {
		lg = zap.NewNop()
	}
	i := &Indexer{
		index: idx,
		con:   con,
		lg:    lg,
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.observer == nil {
		i.observer = NewLogObserver(lg)
	}
	return i
}

// Index pulls batches from the connector for container (all containers when
// empty) and saves each one before asking for the next. Listing-source and
// storage errors are returned together with the report accumulated so far.
func (i *Indexer) Index(ctx context.Context, container string, batchSize int) (Report, error) {
	var rep Report

	lister := listing.NewLister(i.con, i.lg, listing.WithContainerHook(i.observer.ContainerStarted))
	for batch, err := range lister.Batches(ctx, container, batchSize) {
		if err != nil {
			return rep, err
		}

		if batch.Err != nil {
			i.observer.ListFailed(batch.Container, batch.Err)
			rep.Warnings = multierr.Append(rep.Warnings, fmt.Errorf("list bucket %s: %w", batch.Container, batch.Err))
		}
		if len(batch.Objects) == 0 {
			continue
		}

		res, err := i.index.Save(ctx, batch.Objects)
		if err != nil {
			return rep, fmt.Errorf("save batch %d of bucket %s: %w", rep.Batches+1, batch.Container, err)
		}

		rep.Batches++
		rep.Inserted += res.Inserted
		rep.Skipped += res.Skipped
		rep.Failed += len(res.Failures)
		for _, rowErr := range res.Failures {
			i.observer.RowFailed(rowErr)
			rep.Warnings = multierr.Append(rep.Warnings, rowErr)
		}
		i.observer.BatchSaved(rep.Batches, batch.Container, res, rep.Inserted)
	}

	i.lg.Info("index finished",
		zap.Int("batches", rep.Batches),
		zap.Int("saved", rep.Inserted),
		zap.Int("skipped", rep.Skipped),
		zap.Int("failed", rep.Failed),
	)

	return rep, nil
}
