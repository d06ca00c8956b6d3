package appconfig

import (
	"path/filepath"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/userextra"
	"github.com/jamesrr39/ownmapstyle/offline"
	"github.com/jamesrr39/ownmapstyle/stylestore"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix   = "OWNMAPSTYLE"
	DefaultPort = 9000
)

// Config holds the defaults that can be set from the environment, e.g. OWNMAPSTYLE_ADDR.
// Command line flags take precedence over them.
type Config struct {
	Addr                string `envconfig:"ADDR" default:":9000"`
	DataDir             string `envconfig:"DATA_DIR" default:"~/.local/share/github.com/jamesrr39/ownmapstyle/"`
	Store               string `envconfig:"STORE"`
	DownloadConcurrency uint   `envconfig:"DOWNLOAD_CONCURRENCY" default:"8"`
}

func Load() (*Config, errorsx.Error) {
	config := new(Config)
	err := envconfig.Process(EnvPrefix, config)
	if err != nil {
		return nil, errorsx.Wrap(err)
	}

	if config.DownloadConcurrency == 0 {
		config.DownloadConcurrency = offline.DefaultMaxConcurrentDownloads
	}

	return config, nil
}

// StoreConnectionString returns the configured style store, or a sqlite file in the data dir if none is set
func (c *Config) StoreConnectionString() (string, errorsx.Error) {
	if c.Store != "" {
		return c.Store, nil
	}

	dataDir, err := userextra.ExpandUser(c.DataDir)
	if err != nil {
		return "", errorsx.Wrap(err, "dataDir", c.DataDir)
	}

	return string(stylestore.DBTypeSQLite) + stylestore.ConnectionPathSeparator + filepath.Join(dataDir, "styles.db"), nil
}
