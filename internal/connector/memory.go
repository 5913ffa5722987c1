package connector

import (
	"context"
	"sync"
	"time"
)

type memoryFailure struct {
	after int
	err   error
}

// MemoryConnector is an in-memory object store. Containers are listed in
// creation order and objects in insertion order, pageSize objects per page.
type MemoryConnector struct {
	mu sync.Mutex

	pageSize   int
	containers []string
	objects    map[string][]Object

	listErr  error
	failures map[string]memoryFailure
}

func NewMemoryConnector(pageSize int) *MemoryConnector {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &MemoryConnector{
		pageSize: pageSize,
		objects:  make(map[string][]Object),
		failures: make(map[string]memoryFailure),
	}
}

// CreateContainer registers an empty container; Put creates it implicitly.
func (m *MemoryConnector) CreateContainer(container string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createLocked(container)
}

func (m *MemoryConnector) createLocked(container string) {
	if _, ok := m.objects[container]; ok {
		return
	}
	m.containers = append(m.containers, container)
	m.objects[container] = nil
}

func (m *MemoryConnector) Put(container, key string, lastModified time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.createLocked(container)
	m.objects[container] = append(m.objects[container], Object{
		Container:    container,
		Key:          key,
		LastModified: lastModified,
	})
}

// FailContainers makes ListContainers return err.
func (m *MemoryConnector) FailContainers(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listErr = err
}

// FailAfter makes ListObjects for container deliver at most n objects and
// then return err.
func (m *MemoryConnector) FailAfter(container string, n int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createLocked(container)
	m.failures[container] = memoryFailure{after: n, err: err}
}

func (m *MemoryConnector) ListContainers(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]string(nil), m.containers...), nil
}

func (m *MemoryConnector) ListObjects(ctx context.Context, container string, fn PageFunc) error {
	m.mu.Lock()
	objects := append([]Object(nil), m.objects[container]...)
	failure, failing := m.failures[container]
	m.mu.Unlock()

	if failing && failure.after < len(objects) {
		objects = objects[:failure.after]
	}

	for start := 0; start < len(objects); start += m.pageSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+m.pageSize, len(objects))
		if err := fn(objects[start:end]); err != nil {
			return err
		}
	}

	if failing {
		return failure.err
	}
	return nil
}
