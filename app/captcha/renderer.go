package captcha

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	imageWidth  = 160
	imageHeight = 60
	noiseLines  = 8
)

// ImageRenderer is the built-in Renderer. It draws the challenge text
// with a bitmap face and scatters noise lines over it. Good enough to
// keep trivial OCR honest; deployments wanting prettier captchas plug in
// their own Renderer.
type ImageRenderer struct{}

func NewImageRenderer() *ImageRenderer {
	return &ImageRenderer{}
}

func (r *ImageRenderer) Render(text string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, imageWidth, imageHeight))

	bg := color.RGBA{R: 240, G: 240, B: 235, A: 255}
	for y := 0; y < imageHeight; y++ {
		for x := 0; x < imageWidth; x++ {
			img.Set(x, y, bg)
		}
	}

	for i := 0; i < noiseLines; i++ {
		drawLine(img,
			rand.Intn(imageWidth), rand.Intn(imageHeight),
			rand.Intn(imageWidth), rand.Intn(imageHeight),
			color.RGBA{R: uint8(rand.Intn(160)), G: uint8(rand.Intn(160)), B: uint8(rand.Intn(160)), A: 255},
		)
	}

	face := basicfont.Face7x13
	step := imageWidth / (len(text) + 1)
	for idx, ch := range text {
		// jitter each glyph position so characters don't line up
		x := step * (idx + 1)
		y := imageHeight/2 + rand.Intn(13) - 6
		d := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.RGBA{R: 20, G: 20, B: 60, A: 255}),
			Face: face,
			Dot:  fixed.P(x, y),
		}
		d.DrawString(string(ch))
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// drawLine is a minimal Bresenham rasterizer.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
