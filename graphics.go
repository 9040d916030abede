package main

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

const checkSize = 16

var (
	checkLight = color.RGBA{0x99, 0x99, 0x99, 0xff}
	checkDark  = color.RGBA{0x66, 0x66, 0x66, 0xff}
)

// bundledFonts are the fonts a FontSpec may name.
var bundledFonts = map[string][]byte{
	"goregular": goregular.TTF,
	"gomono":    gomono.TTF,
	"gobold":    gobold.TTF,
	"goitalic":  goitalic.TTF,
}

// loadFontFace builds a text face for spec, falling back to Go Regular for
// names that are not bundled.
func loadFontFace(spec FontSpec) (*text.GoTextFace, error) {
	ttf, ok := bundledFonts[strings.ToLower(spec.Name)]
	if !ok {
		logger.Warn("unknown font, using goregular", "font", spec.Name)
		ttf = goregular.TTF
	}
	src, err := text.NewGoTextFaceSource(bytes.NewReader(ttf))
	if err != nil {
		return nil, fmt.Errorf("loading font %s: %w", spec.Name, err)
	}
	return &text.GoTextFace{Source: src, Size: spec.Size}, nil
}

// DrawText draws text with specified position and color
func DrawText(screen *ebiten.Image, textString string, font *text.GoTextFace, x, y float64, textColor color.RGBA) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(textColor)
	text.Draw(screen, textString, font, op)
}

// DrawFilledRect draws filled rectangles with float64 coordinates
func DrawFilledRect(screen *ebiten.Image, x, y, w, h float64, bgColor color.RGBA) {
	vector.DrawFilledRect(screen, float32(x), float32(y), float32(w), float32(h), bgColor, false)
}

// newCheckerTile returns a 2x2 tile of checks to be repeated over the window.
func newCheckerTile() *ebiten.Image {
	tile := ebiten.NewImage(checkSize*2, checkSize*2)
	tile.Fill(checkLight)
	DrawFilledRect(tile, checkSize, 0, checkSize, checkSize, checkDark)
	DrawFilledRect(tile, 0, checkSize, checkSize, checkSize, checkDark)
	return tile
}
