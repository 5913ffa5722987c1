package connector

import (
	"context"
	"time"
)

type ConnectorType string

const (
	ConnectorTypeS3     ConnectorType = "s3"
	ConnectorTypeMinio  ConnectorType = "minio"
	ConnectorTypeWebdav ConnectorType = "webdav"
)

// Object describes a single remote object as seen at listing time.
type Object struct {
	Container string
	Key       string

	LastModified time.Time
}

// PageFunc receives one provider page of objects. Returning an error stops
// the listing and the error is returned from ListObjects unchanged.
type PageFunc func(page []Object) error

type Connector interface {
	// ListContainers returns every container visible to the configured credentials.
	ListContainers(ctx context.Context) ([]string, error)
	// ListObjects walks all objects of a container page by page, in provider order.
	ListObjects(ctx context.Context, container string, fn PageFunc) error
}
