package listing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexeynavarkin/s3index/internal/connector"
)

var modified = time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)

func fill(con *connector.MemoryConnector, container string, n int) {
	for i := 0; i < n; i++ {
		con.Put(container, fmt.Sprintf("%s/key-%03d", container, i), modified)
	}
}

type collected struct {
	batches []Batch
	err     error
}

func collect(l *Lister, container string, size int) collected {
	var c collected
	for batch, err := range l.Batches(context.Background(), container, size) {
		if err != nil {
			c.err = err
			continue
		}
		c.batches = append(c.batches, batch)
	}
	return c
}

func sizes(batches []Batch) []int {
	out := make([]int, 0, len(batches))
	for _, b := range batches {
		out = append(out, len(b.Objects))
	}
	return out
}

func TestBatches_SizeContract(t *testing.T) {
	tests := []struct {
		objects, batch int
		want           []int
	}{
		{objects: 5, batch: 2, want: []int{2, 2, 1}},
		{objects: 4, batch: 2, want: []int{2, 2}},
		{objects: 1, batch: 100, want: []int{1}},
		{objects: 7, batch: 1, want: []int{1, 1, 1, 1, 1, 1, 1}},
		{objects: 25, batch: 5, want: []int{5, 5, 5, 5, 5}},
		{objects: 0, batch: 3, want: []int{}},
	}
	for _, tt := range tests {
		for _, pageSize := range []int{1, 3, 1000} {
			t.Run(fmt.Sprintf("n=%d/b=%d/page=%d", tt.objects, tt.batch, pageSize), func(t *testing.T) {
				con := connector.NewMemoryConnector(pageSize)
				con.CreateContainer("bucket")
				fill(con, "bucket", tt.objects)

				got := collect(NewLister(con, nil), "bucket", tt.batch)
				require.NoError(t, got.err)
				assert.Equal(t, tt.want, sizes(got.batches))

				var keys []string
				for _, b := range got.batches {
					assert.NoError(t, b.Err)
					for _, o := range b.Objects {
						keys = append(keys, o.Key)
					}
				}
				for i, key := range keys {
					assert.Equal(t, fmt.Sprintf("bucket/key-%03d", i), key)
				}
			})
		}
	}
}

func TestBatches_AllContainers(t *testing.T) {
	con := connector.NewMemoryConnector(10)
	fill(con, "test-bucket-1", 3)
	fill(con, "test-bucket-2", 2)

	got := collect(NewLister(con, nil), "", 2)
	require.NoError(t, got.err)
	assert.Equal(t, []int{2, 1, 2}, sizes(got.batches))
	assert.Equal(t, "test-bucket-1", got.batches[1].Container)
	assert.Equal(t, "test-bucket-2", got.batches[2].Container)
	for _, b := range got.batches {
		for _, o := range b.Objects {
			assert.Equal(t, b.Container, o.Bucket)
		}
	}
}

func TestBatches_ContainerFilter(t *testing.T) {
	con := connector.NewMemoryConnector(10)
	fill(con, "wanted", 3)
	fill(con, "other", 4)

	got := collect(NewLister(con, nil), "wanted", 100)
	require.NoError(t, got.err)
	require.Len(t, got.batches, 1)
	assert.Len(t, got.batches[0].Objects, 3)
	assert.Equal(t, "wanted", got.batches[0].Container)
}

func TestBatches_ContainerFailureFlushesAndContinues(t *testing.T) {
	denied := errors.New("access denied")
	con := connector.NewMemoryConnector(2)
	fill(con, "broken", 5)
	con.FailAfter("broken", 3, denied)
	fill(con, "healthy", 2)

	got := collect(NewLister(con, nil), "", 2)
	require.NoError(t, got.err)
	require.Len(t, got.batches, 3)

	assert.Equal(t, "broken", got.batches[0].Container)
	assert.Len(t, got.batches[0].Objects, 2)
	assert.NoError(t, got.batches[0].Err)

	assert.Equal(t, "broken", got.batches[1].Container)
	assert.Len(t, got.batches[1].Objects, 1)
	assert.ErrorIs(t, got.batches[1].Err, denied)

	assert.Equal(t, "healthy", got.batches[2].Container)
	assert.Len(t, got.batches[2].Objects, 2)
	assert.NoError(t, got.batches[2].Err)
}

func TestBatches_ContainerFailureWithNothingBuffered(t *testing.T) {
	denied := errors.New("access denied")
	con := connector.NewMemoryConnector(2)
	con.FailAfter("error-bucket", 0, denied)

	got := collect(NewLister(con, nil), "", 10)
	require.NoError(t, got.err)
	require.Len(t, got.batches, 1)
	assert.Empty(t, got.batches[0].Objects)
	assert.ErrorIs(t, got.batches[0].Err, denied)
}

func TestBatches_ListContainersFailureIsFatal(t *testing.T) {
	con := connector.NewMemoryConnector(2)
	fill(con, "bucket", 1)
	con.FailContainers(errors.New("no credentials"))

	got := collect(NewLister(con, nil), "", 10)
	require.Error(t, got.err)
	assert.Contains(t, got.err.Error(), "no credentials")
	assert.Empty(t, got.batches)
}

func TestBatches_InvalidSize(t *testing.T) {
	con := connector.NewMemoryConnector(2)
	fill(con, "bucket", 1)

	for _, size := range []int{0, -1} {
		got := collect(NewLister(con, nil), "bucket", size)
		assert.ErrorIs(t, got.err, ErrInvalidBatchSize)
		assert.Empty(t, got.batches)
	}
}

type countingConnector struct {
	connector.Connector
	listCalls int
}

func (c *countingConnector) ListObjects(ctx context.Context, container string, fn connector.PageFunc) error {
	c.listCalls++
	return c.Connector.ListObjects(ctx, container, fn)
}

func TestBatches_LazyAndStoppable(t *testing.T) {
	mem := connector.NewMemoryConnector(1)
	fill(mem, "a", 10)
	fill(mem, "b", 10)
	con := &countingConnector{Connector: mem}

	seq := NewLister(con, nil).Batches(context.Background(), "", 3)
	assert.Equal(t, 0, con.listCalls, "nothing is listed before iteration")

	var seen int
	for batch, err := range seq {
		require.NoError(t, err)
		seen += len(batch.Objects)
		break
	}
	assert.Equal(t, 3, seen)
	assert.Equal(t, 1, con.listCalls, "second container is never listed")
}

func TestBatches_CancelledContext(t *testing.T) {
	con := connector.NewMemoryConnector(1)
	fill(con, "a", 3)
	fill(con, "b", 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var errs []error
	for _, err := range NewLister(con, nil).Batches(ctx, "", 2) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestBatches_ContainerHook(t *testing.T) {
	con := connector.NewMemoryConnector(10)
	fill(con, "one", 1)
	con.CreateContainer("empty")
	fill(con, "two", 1)

	var started []string
	l := NewLister(con, nil, WithContainerHook(func(c string) { started = append(started, c) }))
	got := collect(l, "", 5)
	require.NoError(t, got.err)
	assert.Equal(t, []string{"one", "empty", "two"}, started)
	assert.Len(t, got.batches, 2)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "2024-03-01T12:30:00+00:00", FormatTimestamp(modified))
	assert.Equal(t, "2024-03-01T12:30:00.25+00:00", FormatTimestamp(modified.Add(250*time.Millisecond)))

	cet := time.FixedZone("CET", 3600)
	assert.Equal(t, "2024-03-01T13:30:00+01:00", FormatTimestamp(modified.In(cet)))
}
