// Package drawing implements the autonomous drawing engine: a bounded
// canvas, pluggable art eras, attention tracking, and the narrative arc
// state machine.
package drawing

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// CanvasSize is the fixed canvas dimension in pixels.
const CanvasSize = 240

// PixelCap is the hard cap on pixels drawn before a canvas must clear.
const PixelCap = 15000

// Canvas wraps an RGBA image with a pixel-drawn counter, since the
// cap and autonomy logic need to know how much ink has been laid down
// independent of image.RGBA's own bookkeeping.
type Canvas struct {
	Img         *image.RGBA
	PixelsDrawn int
}

// NewCanvas returns a fresh, all-background canvas.
func NewCanvas() *Canvas {
	img := image.NewRGBA(image.Rect(0, 0, CanvasSize, CanvasSize))
	bg := color.RGBA{R: 18, G: 16, B: 22, A: 255}
	for y := 0; y < CanvasSize; y++ {
		for x := 0; x < CanvasSize; x++ {
			img.Set(x, y, bg)
		}
	}
	return &Canvas{Img: img}
}

// Full reports whether the canvas has hit the hard pixel cap.
func (c *Canvas) Full() bool {
	return c.PixelsDrawn >= PixelCap
}

// SetPixel lays down one pixel and counts it toward the cap, a no-op
// once Full().
func (c *Canvas) SetPixel(x, y int, col color.Color) {
	if c.Full() {
		return
	}
	if x < 0 || y < 0 || x >= CanvasSize || y >= CanvasSize {
		return
	}
	c.Img.Set(x, y, col)
	c.PixelsDrawn++
}

// EncodePNG renders the canvas as a PNG byte slice.
func (c *Canvas) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.Img); err != nil {
		return nil, fmt.Errorf("encode canvas png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG atomically writes the canvas to dir/<name>.png.
func (c *Canvas) SavePNG(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir drawings dir: %w", err)
	}
	data, err := c.EncodePNG()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+".png")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("write canvas temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename canvas: %w", err)
	}
	return path, nil
}

// Thumbnail returns a downscaled copy for embedding in tool responses,
// using x/image/draw's high-quality scaler rather than nearest-neighbor.
func (c *Canvas) Thumbnail(size int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), c.Img, c.Img.Bounds(), draw.Over, nil)
	return dst
}

// ThumbnailSize is the fixed edge length used for the saved-alongside
// thumbnail — small enough to embed in a notepad-screen tool response
// without shipping the full 240x240 canvas.
const ThumbnailSize = 64

// SaveThumbnail writes a ThumbnailSize downscaled copy to
// dir/<name>-thumb.png, alongside the full-resolution SavePNG output.
func (c *Canvas) SaveThumbnail(dir, name string) (string, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir drawings dir: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.Thumbnail(ThumbnailSize)); err != nil {
		return "", fmt.Errorf("encode thumbnail png: %w", err)
	}
	path := filepath.Join(dir, name+"-thumb.png")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("write thumbnail temp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("rename thumbnail: %w", err)
	}
	return path, nil
}

// Clear resets the canvas in place, used after an autonomy save.
func (c *Canvas) Clear() {
	fresh := NewCanvas()
	c.Img = fresh.Img
	c.PixelsDrawn = 0
}
