// Package listing turns a connector's paginated object listing into
// bounded-size batches ready for the index.
package listing

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/alexeynavarkin/s3index/internal/connector"
	"github.com/alexeynavarkin/s3index/internal/repository/index_repo"
)

// TimestampLayout is ISO-8601 with a numeric offset, e.g. 2024-03-01T12:30:00+00:00.
const TimestampLayout = "2006-01-02T15:04:05.999999-07:00"

var ErrInvalidBatchSize = errors.New("batch size must be positive")

// errStopped aborts a connector walk when the consumer stops iterating.
var errStopped = errors.New("listing stopped")

// Batch is a group of objects from one container.
//
// Err is set on the last batch of a container whose listing failed part way;
// Objects then holds whatever was buffered before the failure and may be empty.
type Batch struct {
	Container string
	Objects   []index_repo.Object
	Err       error
}

type Lister struct {
	con         connector.Connector
	lg          *zap.Logger
	onContainer func(container string)
}

type Option func(*Lister)

// WithContainerHook registers fn to be called before each container is listed.
func WithContainerHook(fn func(container string)) Option {
	return func(l *Lister) {
		l.onContainer = fn
	}
}

func NewLister(con connector.Connector, lg *zap.Logger, opts ...Option) *Lister {
	if lg == nil {
		lg = zap.NewNop()
	}
	l := &Lister{con: con, lg: lg}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Batches lists container, or every container when it is empty, and yields
// batches of exactly batchSize objects except for the last one of each
// container. Nothing is listed until the sequence is ranged over.
//
// A container that fails part way ends with a Batch carrying Err and the
// enumeration moves on to the next container. A non-nil second value is
// fatal (invalid size, containers cannot be enumerated, context done) and
// is always the last element.
func (l *Lister) Batches(ctx context.Context, container string, batchSize int) iter.Seq2[Batch, error] {
	return func(yield func(Batch, error) bool) {
		if batchSize <= 0 {
			yield(Batch{}, fmt.Errorf("%w: %d", ErrInvalidBatchSize, batchSize))
			return
		}

		containers := []string{container}
		if container == "" {
			names, err := l.con.ListContainers(ctx)
			if err != nil {
				yield(Batch{}, fmt.Errorf("list containers: %w", err))
				return
			}
			containers = names
		}

		for _, name := range containers {
			if !l.listContainer(ctx, name, batchSize, yield) {
				return
			}
		}
	}
}

func (l *Lister) listContainer(ctx context.Context, container string, batchSize int, yield func(Batch, error) bool) bool {
	if l.onContainer != nil {
		l.onContainer(container)
	}
	lg := l.lg.With(zap.String("container", container))
	lg.Info("listing container")

	stopped := false
	buf := make([]index_repo.Object, 0, batchSize)
	err := l.con.ListObjects(ctx, container, func(page []connector.Object) error {
		for _, obj := range page {
			buf = append(buf, toIndexObject(obj))
			if len(buf) < batchSize {
				continue
			}
			if !yield(Batch{Container: container, Objects: buf}, nil) {
				stopped = true
				return errStopped
			}
			buf = make([]index_repo.Object, 0, batchSize)
		}
		return nil
	})
	if stopped {
		return false
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			yield(Batch{}, ctxErr)
			return false
		}
		lg.Warn("container listing failed", zap.Error(err), zap.Int("buffered", len(buf)))
		return yield(Batch{Container: container, Objects: buf, Err: err}, nil)
	}

	if len(buf) > 0 {
		return yield(Batch{Container: container, Objects: buf}, nil)
	}
	return true
}

func toIndexObject(obj connector.Object) index_repo.Object {
	return index_repo.Object{
		Bucket:       obj.Container,
		Key:          obj.Key,
		LastModified: FormatTimestamp(obj.LastModified),
	}
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}
