package main

import (
	"fmt"
	"net/url"

	config "github.com/ThomasObenaus/go-conf"

	"github.com/alexeynavarkin/s3index/internal/connector"
)

const envPrefix = "S3INDEX"

type Config struct {
	Source struct {
		Type      string `cfg:"{'name':'type','desc':'Listing source: s3, minio or webdav','default':'s3'}"`
		Region    string `cfg:"{'name':'region','desc':'Region of the object store','default':''}"`
		Endpoint  string `cfg:"{'name':'endpoint','desc':'Custom endpoint (host:port for minio)','default':''}"`
		AccessKey string `cfg:"{'name':'access_key','desc':'Access key id','default':''}"`
		SecretKey string `cfg:"{'name':'secret_key','desc':'Secret access key','default':''}"`
		PathStyle bool   `cfg:"{'name':'path_style','desc':'Use path-style addressing','default':false}"`
		Insecure  bool   `cfg:"{'name':'insecure','desc':'Connect to minio without TLS','default':false}"`
		URL       string `cfg:"{'name':'url','desc':'WebDAV url, credentials may be embedded','default':''}"`
	} `cfg:"{'name':'source'}"`

	IndexStorage struct {
		URL string `cfg:"{'name':'url','desc':'Index database: a SQLite path or postgres:// url','default':''}"`
	} `cfg:"{'name':'index_storage'}"`

	Log struct {
		Debug bool `cfg:"{'name':'debug','desc':'Enable debug logging','default':false}"`
	} `cfg:"{'name':'log'}"`
}

// loadConfig reads S3INDEX_* environment variables. Command line flags belong
// to cobra, so go-conf gets no arguments.
func loadConfig() (Config, error) {
	cfg := Config{}

	cfgProvider, err := config.NewConfigProvider(&cfg, envPrefix, envPrefix)
	if err != nil {
		return cfg, fmt.Errorf("build config provider: %w", err)
	}
	if err := cfgProvider.ReadConfig([]string{}); err != nil {
		return cfg, fmt.Errorf("read config: %w\n%s", err, cfgProvider.Usage())
	}
	return cfg, nil
}

func (c Config) connectorConfig() (connector.Config, error) {
	src := c.Source
	conCfg := connector.Config{
		Type: connector.ConnectorType(src.Type),
		S3: connector.S3ConnectorConfig{
			Region:    src.Region,
			Endpoint:  src.Endpoint,
			AccessKey: src.AccessKey,
			SecretKey: src.SecretKey,
			PathStyle: src.PathStyle,
		},
		Minio: connector.MinioConnectorConfig{
			Endpoint:  src.Endpoint,
			Region:    src.Region,
			AccessKey: src.AccessKey,
			SecretKey: src.SecretKey,
			Secure:    !src.Insecure,
		},
	}

	if src.URL != "" {
		targetURL, err := url.Parse(src.URL)
		if err != nil {
			return conCfg, fmt.Errorf("parse source url: %w", err)
		}
		conCfg.Webdav = connector.WebdavConnectorConfig{
			BaseURL:  targetURL.Scheme + "://" + targetURL.Host,
			BasePath: targetURL.Path,
			Username: targetURL.User.Username(),
		}
		if password, ok := targetURL.User.Password(); ok {
			conCfg.Webdav.Password = password
		}
	}

	return conCfg, nil
}
