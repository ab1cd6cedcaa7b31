package drawing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anima-project/anima/internal/domain"
)

// canvasFile is canvas.json's on-disk shape: the raw pixel buffer plus
// the metadata needed to resume drawing exactly where it left off.
type canvasFile struct {
	Width, Height int
	Pixels        []byte // RGBA, row-major
	PixelsDrawn   int
	EraName       string
	State         domain.DrawingState
}

// Save atomically persists the canvas and drawing state to path.
func (e *Engine) Save(path string) error {
	f := canvasFile{
		Width: CanvasSize, Height: CanvasSize,
		Pixels:      append([]byte(nil), e.Canvas.Img.Pix...),
		PixelsDrawn: e.Canvas.PixelsDrawn,
		EraName:     e.Registry.Active().Name,
		State:       e.State,
	}
	data, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal canvas: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write canvas temp: %w", err)
	}
	return os.Rename(tmp, path)
}

// LoadInto restores a persisted canvas into e, returning false (not an
// error) if path does not yet exist.
func (e *Engine) LoadInto(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read canvas: %w", err)
	}
	var f canvasFile
	if err := json.Unmarshal(data, &f); err != nil {
		return false, fmt.Errorf("parse canvas: %w", err)
	}
	if f.Width != CanvasSize || f.Height != CanvasSize {
		return false, fmt.Errorf("canvas: persisted size %dx%d does not match %dx%d", f.Width, f.Height, CanvasSize, CanvasSize)
	}
	copy(e.Canvas.Img.Pix, f.Pixels)
	e.Canvas.PixelsDrawn = f.PixelsDrawn
	e.State = f.State
	if f.EraName != "" {
		if e.Registry.SetActive(f.EraName) {
			e.eraState = e.Registry.Active().CreateState(e.rng)
		}
	}
	return true, nil
}
