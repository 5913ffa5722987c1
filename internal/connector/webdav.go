package connector

import (
	"context"
	"fmt"
	"path"

	"github.com/studio-b12/gowebdav"
	"go.uber.org/zap"
)

type WebdavConnectorConfig struct {
	BaseURL  string
	BasePath string
	Username string
	Password string
}

// WebdavConnector exposes a WebDAV share as object storage: every directory
// directly under BasePath is a container and files below it are its objects,
// keyed by their path relative to the container directory.
type WebdavConnector struct {
	basePath string

	webdavClient *gowebdav.Client
	lg           *zap.Logger
}

func NewWebdavConnector(cfg WebdavConnectorConfig, lg *zap.Logger) *WebdavConnector {
	if lg == nil {
		lg = zap.NewNop()
	}
	basePath := cfg.BasePath
	if basePath == "" {
		basePath = "/"
	}

	return &WebdavConnector{
		basePath: basePath,
		webdavClient: gowebdav.NewClient(
			cfg.BaseURL,
			cfg.Username,
			cfg.Password,
		),
		lg: lg,
	}
}

func (c *WebdavConnector) ListContainers(ctx context.Context) ([]string, error) {
	entries, err := c.webdavClient.ReadDir(c.basePath)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", c.basePath, err)
	}

	containers := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			containers = append(containers, entry.Name())
		}
	}

	return containers, nil
}

type webdavDir struct {
	path string
	rel  string
}

func (c *WebdavConnector) ListObjects(ctx context.Context, container string, fn PageFunc) error {
	queue := make([]webdavDir, 0)
	queue = append(queue, webdavDir{path: gowebdav.Join(c.basePath, container)})

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		dir := queue[0]
		queue = queue[1:]

		entries, err := c.webdavClient.ReadDir(dir.path)
		if err != nil {
			return fmt.Errorf("read dir %s: %w", dir.path, err)
		}

		page := make([]Object, 0, len(entries))
		for _, entry := range entries {
			rel := path.Join(dir.rel, entry.Name())
			if entry.IsDir() {
				queue = append(queue, webdavDir{
					path: gowebdav.Join(dir.path, entry.Name()),
					rel:  rel,
				})
				continue
			}

			page = append(page, Object{
				Container:    container,
				Key:          rel,
				LastModified: entry.ModTime(),
			})
		}

		c.lg.Debug("webdav directory listed",
			zap.String("container", container),
			zap.String("path", dir.path),
			zap.Int("objects", len(page)),
		)
		if len(page) == 0 {
			continue
		}
		if err := fn(page); err != nil {
			return err
		}
	}

	return nil
}
