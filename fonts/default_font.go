package fonts

import (
	"strings"
	"sync"

	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"github.com/jamesrr39/goutil/errorsx"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

type fontFace int

const (
	faceRegular fontFace = iota
	faceBold
	faceItalic
	faceMono
)

var fontData = map[fontFace][]byte{
	faceRegular: goregular.TTF,
	faceBold:    gobold.TTF,
	faceItalic:  goitalic.TTF,
	faceMono:    gomono.TTF,
}

var (
	loadOnce    sync.Once
	loadedFonts map[fontFace]*truetype.Font
	loadErr     errorsx.Error
)

func loadFonts() (map[fontFace]*truetype.Font, errorsx.Error) {
	loadOnce.Do(func() {
		loadedFonts = make(map[fontFace]*truetype.Font)
		for face, data := range fontData {
			font, err := freetype.ParseFont(data)
			if err != nil {
				loadErr = errorsx.Wrap(err, "face", face)
				return
			}
			loadedFonts[face] = font
		}
	})

	return loadedFonts, loadErr
}

func DefaultFont() *truetype.Font {
	fonts, err := loadFonts()
	if err != nil {
		// the fonts are compiled in, so this only happens if the font package itself is broken
		panic(err)
	}
	return fonts[faceRegular]
}

// ForStack picks a built-in font for a style's "text-font" stack, e.g. ["Open Sans Bold", "Arial Unicode MS Bold"].
// The first name that mentions a weight or style we have wins; otherwise the regular face is used.
func ForStack(stack []string) *truetype.Font {
	fonts, err := loadFonts()
	if err != nil {
		panic(err)
	}

	for _, name := range stack {
		lowerName := strings.ToLower(name)
		switch {
		case strings.Contains(lowerName, "bold"):
			return fonts[faceBold]
		case strings.Contains(lowerName, "italic"):
			return fonts[faceItalic]
		case strings.Contains(lowerName, "mono"):
			return fonts[faceMono]
		}
	}

	return fonts[faceRegular]
}
