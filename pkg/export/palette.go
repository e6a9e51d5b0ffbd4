package export

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

var (
	colorBackdrop = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	colorStroke   = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorLink     = color.RGBA{0x99, 0x99, 0x99, 0xff}
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorTooltip  = color.RGBA{0xff, 0xff, 0xee, 0xff}
	colorDetailBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	colorError    = color.RGBA{0xc6, 0x28, 0x28, 0xff}
	colorUnknown  = color.RGBA{0xbd, 0xbd, 0xbd, 0xff}
)

var typeColors = map[string]color.RGBA{
	"attack-pattern":   {0xe5, 0x39, 0x35, 0xff},
	"campaign":         {0x8e, 0x24, 0xaa, 0xff},
	"course-of-action": {0x43, 0xa0, 0x47, 0xff},
	"identity":         {0x1e, 0x88, 0xe5, 0xff},
	"indicator":        {0xfb, 0x8c, 0x00, 0xff},
	"infrastructure":   {0x6d, 0x4c, 0x41, 0xff},
	"intrusion-set":    {0x5e, 0x35, 0xb1, 0xff},
	"location":         {0x00, 0x89, 0x7b, 0xff},
	"malware":          {0xd8, 0x1b, 0x60, 0xff},
	"observed-data":    {0x75, 0x75, 0x75, 0xff},
	"threat-actor":     {0x3f, 0x51, 0xb5, 0xff},
	"tool":             {0xf4, 0x51, 0x1e, 0xff},
	"vulnerability":    {0xfd, 0xd8, 0x35, 0xff},
}

// TypeColor is the node fill for a STIX type.
func TypeColor(typ string) color.RGBA {
	if c, ok := typeColors[typ]; ok {
		return c
	}
	return colorUnknown
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// parseHex reads "#rrggbb", falling back to def.
func parseHex(s string, def color.RGBA) color.RGBA {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return def
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return def
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
}
