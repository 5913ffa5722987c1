package connector

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

var ErrUnknownType = errors.New("unknown connector type")

type Config struct {
	Type ConnectorType

	S3     S3ConnectorConfig
	Minio  MinioConnectorConfig
	Webdav WebdavConnectorConfig
}

// New builds the connector selected by cfg.Type; an empty type means S3.
func New(ctx context.Context, cfg Config, lg *zap.Logger) (Connector, error) {
	switch cfg.Type {
	case ConnectorTypeS3, "":
		return NewS3Connector(ctx, cfg.S3, lg)
	case ConnectorTypeMinio:
		return NewMinioConnector(cfg.Minio, lg)
	case ConnectorTypeWebdav:
		if cfg.Webdav.BaseURL == "" {
			return nil, fmt.Errorf("webdav url must be provided")
		}
		return NewWebdavConnector(cfg.Webdav, lg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.Type)
	}
}
