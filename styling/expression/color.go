package expression

import (
	"encoding/json"
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/jamesrr39/goutil/errorsx"
)

// Color is a non-premultiplied colour, serialized as "rgba(r, g, b, a)". Alpha is between 0 and 1.
type Color struct {
	R, G, B uint8
	A       float64
}

var _ color.Color = Color{}

func FromColor(c color.Color) Color {
	nrgba := color.NRGBAModel.Convert(c).(color.NRGBA)
	return Color{nrgba.R, nrgba.G, nrgba.B, float64(nrgba.A) / 0xff}
}

func (c Color) String() string {
	return fmt.Sprintf("rgba(%d, %d, %d, %s)", c.R, c.G, c.B, strconv.FormatFloat(c.A, 'f', -1, 64))
}

func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// RGBA implements color.Color (alpha-premultiplied)
func (c Color) RGBA() (r, g, b, a uint32) {
	alpha := clamp(c.A, 0, 1)
	a = uint32(alpha * 0xffff)
	r = uint32(c.R) * 0x101 * a / 0xffff
	g = uint32(c.G) * 0x101 * a / 0xffff
	b = uint32(c.B) * 0x101 * a / 0xffff
	return
}

var namedColors = map[string]Color{
	"transparent": {0, 0, 0, 0},
	"black":       {0, 0, 0, 1},
	"white":       {255, 255, 255, 1},
	"red":         {255, 0, 0, 1},
	"green":       {0, 128, 0, 1},
	"blue":        {0, 0, 255, 1},
	"yellow":      {255, 255, 0, 1},
	"orange":      {255, 165, 0, 1},
	"purple":      {128, 0, 128, 1},
	"gray":        {128, 128, 128, 1},
	"grey":        {128, 128, 128, 1},
}

// ParseColor parses CSS colour strings: named colours, #rgb, #rrggbb, #rrggbbaa, rgb() and rgba()
func ParseColor(s string) (Color, errorsx.Error) {
	s = strings.ToLower(strings.TrimSpace(s))

	if named, ok := namedColors[s]; ok {
		return named, nil
	}

	if strings.HasPrefix(s, "#") {
		return parseHexColor(s[1:])
	}

	for _, prefix := range []string{"rgba(", "rgb("} {
		if !strings.HasPrefix(s, prefix) || !strings.HasSuffix(s, ")") {
			continue
		}

		fragments := strings.Split(s[len(prefix):len(s)-1], ",")
		if len(fragments) != 3 && len(fragments) != 4 {
			return Color{}, errorsx.Errorf("couldn't parse colour %q: expected 3 or 4 components", s)
		}

		var components []float64
		for _, fragment := range fragments {
			f, err := strconv.ParseFloat(strings.TrimSpace(fragment), 64)
			if err != nil {
				return Color{}, errorsx.Wrap(err, "colour", s)
			}
			components = append(components, f)
		}

		c := Color{
			R: uint8(clamp(components[0], 0, 255)),
			G: uint8(clamp(components[1], 0, 255)),
			B: uint8(clamp(components[2], 0, 255)),
			A: 1,
		}
		if len(components) == 4 {
			c.A = clamp(components[3], 0, 1)
		}
		return c, nil
	}

	return Color{}, errorsx.Errorf("unrecognised colour: %q", s)
}

func parseHexColor(hex string) (Color, errorsx.Error) {
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6, 8:
	default:
		return Color{}, errorsx.Errorf("unrecognised hex colour: %q", "#"+hex)
	}

	val, err := strconv.ParseUint(hex, 16, 64)
	if err != nil {
		return Color{}, errorsx.Wrap(err, "colour", "#"+hex)
	}

	if len(hex) == 8 {
		return Color{uint8(val >> 24), uint8(val >> 16), uint8(val >> 8), float64(uint8(val)) / 0xff}, nil
	}

	return Color{uint8(val >> 16), uint8(val >> 8), uint8(val), 1}, nil
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
