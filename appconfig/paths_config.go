package appconfig

import (
	"path/filepath"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/userextra"
)

const DefaultDataDir = "~/.local/share/github.com/jamesrr39/ownmapstyle/"

type PathsConfig struct {
	StylesDir  string
	OfflineDir string
	TraceDir   string
	TempDir    string
}

// NewPathsConfig lays out the data directories under rootDir. A leading "~/" is expanded to the user's home directory.
func NewPathsConfig(rootDir string) (*PathsConfig, errorsx.Error) {
	rootDir, err := userextra.ExpandUser(rootDir)
	if err != nil {
		return nil, errorsx.Wrap(err, "rootDir", rootDir)
	}

	return &PathsConfig{
		StylesDir:  filepath.Join(rootDir, "styles"),
		OfflineDir: filepath.Join(rootDir, "offline"),
		TraceDir:   filepath.Join(rootDir, "trace"),
		TempDir:    filepath.Join(rootDir, "tmp"),
	}, nil
}

func (pc *PathsConfig) EnsurePaths(fs gofs.Fs) errorsx.Error {
	for _, dirPath := range []string{pc.StylesDir, pc.OfflineDir, pc.TraceDir, pc.TempDir} {
		err := fs.MkdirAll(dirPath, 0755)
		if err != nil {
			return errorsx.Wrap(err, "dirPath", dirPath)
		}
	}

	return nil
}

// OfflineStorePath is the bolt file that downloaded regions go into
func (pc *PathsConfig) OfflineStorePath() string {
	return filepath.Join(pc.OfflineDir, "offline.db")
}
