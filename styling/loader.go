package styling

import (
	"bytes"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/goutil/gofs"
	"github.com/jamesrr39/goutil/logpkg"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
)

const styleFileName = "style.json"

// LoadStylesFromDir reads every style in dir. A style is either a folder with a style.json file in it,
// or a .json file. Styles that fail to load are logged and skipped.
// A style without an ID takes the folder or file name as its ID.
func LoadStylesFromDir(logger *logpkg.Logger, fs gofs.Fs, dir string) ([]*mapboxglstyle.Style, errorsx.Error) {
	fileInfos, err := fs.ReadDir(dir)
	if err != nil {
		return nil, errorsx.Wrap(err, "dir", dir)
	}

	var styles []*mapboxglstyle.Style
	for _, fileInfo := range fileInfos {
		var path, fallbackID string
		switch {
		case fileInfo.IsDir():
			path = filepath.Join(dir, fileInfo.Name(), styleFileName)
			fallbackID = fileInfo.Name()
		case strings.HasSuffix(fileInfo.Name(), ".json"):
			path = filepath.Join(dir, fileInfo.Name())
			fallbackID = strings.TrimSuffix(fileInfo.Name(), ".json")
		default:
			continue
		}

		style, err := LoadStyle(fs, path)
		if err != nil {
			logger.Warn("error loading style from %q. Error: %q", path, err)
			continue
		}

		if style.ID == "" {
			style.ID = fallbackID
		}

		styles = append(styles, style)
	}

	sort.Slice(styles, func(a, b int) bool {
		return styles[a].ID < styles[b].ID
	})

	return styles, nil
}

func LoadStyle(fs gofs.Fs, path string) (*mapboxglstyle.Style, errorsx.Error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errorsx.Wrap(err, "path", path, "hint", "style folders need a "+styleFileName+" file")
		}
		return nil, errorsx.Wrap(err, "path", path)
	}

	style, parseErr := mapboxglstyle.Parse(bytes.NewReader(data))
	if parseErr != nil {
		return nil, errorsx.Wrap(parseErr, "path", path)
	}

	return style, nil
}
