package render

import (
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

const textPointSize = 10

var sansSerifFace = mustLoadFace()

func mustLoadFace() font.Face {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: textPointSize, DPI: 72})
	if err != nil {
		panic(err)
	}
	return face
}

// drawWatermark paints text at (5, H-5), white semi-transparent stroke
// behind a black semi-transparent fill, per the static-response watermark
// convention.
func drawWatermark(dst *image.NRGBA, text string) {
	h := dst.Bounds().Dy()
	dot := fixed.Point26_6{X: fixed.I(5), Y: fixed.I(h - 5)}

	drawStrokedText(dst, text, dot,
		color.NRGBA{R: 255, G: 255, B: 255, A: 160},
		color.NRGBA{A: 200})
}

// drawAttribution paints text on a white 80%-opacity rectangle,
// right-aligned 6px from the bottom-right corner, padded to its own text
// metrics.
func drawAttribution(dst *image.NRGBA, text string) {
	bounds := dst.Bounds()
	width := font.MeasureString(sansSerifFace, text).Ceil()

	metrics := sansSerifFace.Metrics()
	lineHeight := metrics.Height.Ceil()

	const pad = 4
	const margin = 6

	boxW := width + 2*pad
	boxH := lineHeight + 2*pad

	x1 := bounds.Max.X - margin
	y1 := bounds.Max.Y - margin
	x0 := x1 - boxW
	y0 := y1 - boxH

	bg := image.NewUniform(color.NRGBA{R: 255, G: 255, B: 255, A: 204})
	draw.Draw(dst, image.Rect(x0, y0, x1, y1), bg, image.Point{}, draw.Over)

	dot := fixed.Point26_6{
		X: fixed.I(x0 + pad),
		Y: fixed.I(y1 - pad - metrics.Descent.Ceil()),
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(color.NRGBA{A: 255}), Face: sansSerifFace, Dot: dot}
	d.DrawString(text)
}

func drawStrokedText(dst *image.NRGBA, text string, dot fixed.Point26_6, stroke, fill color.NRGBA) {
	offsets := []fixed.Point26_6{
		{X: dot.X - fixed.I(1), Y: dot.Y},
		{X: dot.X + fixed.I(1), Y: dot.Y},
		{X: dot.X, Y: dot.Y - fixed.I(1)},
		{X: dot.X, Y: dot.Y + fixed.I(1)},
	}
	for _, o := range offsets {
		d := &font.Drawer{Dst: dst, Src: image.NewUniform(stroke), Face: sansSerifFace, Dot: o}
		d.DrawString(text)
	}

	d := &font.Drawer{Dst: dst, Src: image.NewUniform(fill), Face: sansSerifFace, Dot: dot}
	d.DrawString(text)
}
