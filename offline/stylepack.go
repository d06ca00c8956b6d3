package offline

import (
	"encoding/json"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
	"github.com/jamesrr39/ownmapstyle/styling/mapboxglstyle"
)

// StylePack is everything besides tiles that's needed to show a style offline
type StylePack struct {
	StyleID    string          `json:"styleId"`
	Style      json.RawMessage `json:"style"`
	SpriteJSON json.RawMessage `json:"spriteJson,omitempty"`
	SpritePNG  []byte          `json:"spritePng,omitempty"`
}

// SpriteURLs returns the sprite index and image URLs, or empty strings if the style has no sprite.
// A sprite URL is a prefix: the files are at {sprite}.json and {sprite}.png, plus any query string.
func SpriteURLs(style *mapboxglstyle.Style) (string, string) {
	if style.Sprite == "" {
		return "", ""
	}

	base, query := style.Sprite, ""
	if idx := strings.Index(base, "?"); idx >= 0 {
		base, query = base[:idx], base[idx:]
	}

	return base + ".json" + query, base + ".png" + query
}

func newStylePack(style *mapboxglstyle.Style) (*StylePack, errorsx.Error) {
	styleJSON, err := json.Marshal(style)
	if err != nil {
		return nil, errorsx.Wrap(err, "styleID", style.ID)
	}

	return &StylePack{StyleID: style.ID, Style: styleJSON}, nil
}
