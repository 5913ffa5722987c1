package connector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMinio struct {
	buckets []minio.BucketInfo
	objects map[string][]minio.ObjectInfo
}

func (f *fakeMinio) ListBuckets(ctx context.Context) ([]minio.BucketInfo, error) {
	return f.buckets, nil
}

func (f *fakeMinio) ListObjects(ctx context.Context, bucket string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo)
	go func() {
		defer close(ch)
		for _, info := range f.objects[bucket] {
			select {
			case ch <- info:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch
}

func minioObjects(n int) []minio.ObjectInfo {
	infos := make([]minio.ObjectInfo, 0, n)
	for i := 0; i < n; i++ {
		infos = append(infos, minio.ObjectInfo{Key: fmt.Sprintf("obj-%04d", i), LastModified: listedAt})
	}
	return infos
}

func TestMinioConnector_ListContainers(t *testing.T) {
	con := newMinioConnector(&fakeMinio{buckets: []minio.BucketInfo{{Name: "a"}, {Name: "b"}}}, nil)

	names, err := con.ListContainers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
}

func TestMinioConnector_ListObjectsCutsPages(t *testing.T) {
	con := newMinioConnector(&fakeMinio{objects: map[string][]minio.ObjectInfo{
		"big": minioObjects(2500),
	}}, nil)

	var sizes []int
	err := con.ListObjects(context.Background(), "big", func(page []Object) error {
		sizes = append(sizes, len(page))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1000, 1000, 500}, sizes)
}

func TestMinioConnector_ListObjectsError(t *testing.T) {
	infos := minioObjects(3)
	infos = append(infos, minio.ObjectInfo{Err: errors.New("Access Denied.")})
	con := newMinioConnector(&fakeMinio{objects: map[string][]minio.ObjectInfo{"locked": infos}}, nil)

	var delivered int
	err := con.ListObjects(context.Background(), "locked", func(page []Object) error {
		delivered += len(page)
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Access Denied.")
	assert.Equal(t, 3, delivered)
}

func TestNewMinioConnector_RequiresEndpoint(t *testing.T) {
	_, err := NewMinioConnector(MinioConnectorConfig{}, nil)
	assert.Error(t, err)
}
