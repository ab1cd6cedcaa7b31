package drawing_test

import (
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/anima-project/anima/internal/drawing"
)

func TestNewCanvasStartsEmpty(t *testing.T) {
	c := drawing.NewCanvas()
	if c.PixelsDrawn != 0 {
		t.Errorf("PixelsDrawn = %d, want 0", c.PixelsDrawn)
	}
}

func TestSetPixelStopsAtPixelCap(t *testing.T) {
	c := drawing.NewCanvas()
	c.PixelsDrawn = drawing.PixelCap
	c.SetPixel(5, 5, color.RGBA{R: 255, A: 255})
	if c.PixelsDrawn != drawing.PixelCap {
		t.Errorf("PixelsDrawn = %d, want capped at %d", c.PixelsDrawn, drawing.PixelCap)
	}
}

func TestRegistryChooseNextEraRotatesInOrder(t *testing.T) {
	r := drawing.NewRegistry()
	first := r.Active().Name
	second := r.ChooseNextEra().Name
	if first == second {
		t.Errorf("expected era to change, both %q", first)
	}
}

func TestEngineTickPlacesAMarkAndAdvancesState(t *testing.T) {
	e := drawing.NewEngine(1)
	now := time.Now()
	before := e.State.MarkCount
	e.Tick(now, 0.1, 0.1, "")
	if e.State.MarkCount != before+1 {
		t.Errorf("MarkCount = %d, want %d", e.State.MarkCount, before+1)
	}
}

func TestEngineAutonomySaveClearsCanvasAndHolds(t *testing.T) {
	e := drawing.NewEngine(1)
	now := time.Now()
	// Force past the pixel threshold directly rather than ticking
	// thousands of times.
	e.Canvas.PixelsDrawn = 1200
	e.Tick(now, 0.9, 0.9, t.TempDir())
	if !e.Holding(now.Add(time.Second)) {
		t.Error("expected engine to be holding the post-clear frame")
	}
	if e.Canvas.PixelsDrawn > 5 {
		t.Errorf("PixelsDrawn = %d, want near 0 after autonomy clear", e.Canvas.PixelsDrawn)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "canvas.json")

	e := drawing.NewEngine(1)
	now := time.Now()
	e.Tick(now, 0.1, 0.1, "")
	wantMarks := e.State.MarkCount

	if err := e.Save(path); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded := drawing.NewEngine(2)
	ok, err := loaded.LoadInto(path)
	if err != nil {
		t.Fatalf("LoadInto() error: %v", err)
	}
	if !ok {
		t.Fatal("expected LoadInto to find the persisted file")
	}
	if loaded.State.MarkCount != wantMarks {
		t.Errorf("MarkCount = %d, want %d", loaded.State.MarkCount, wantMarks)
	}
}

func TestLoadIntoMissingFileReturnsFalse(t *testing.T) {
	e := drawing.NewEngine(1)
	ok, err := e.LoadInto(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadInto() error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for a missing file")
	}
}

func TestCoherenceInUnitIntervalOnEmptyCanvas(t *testing.T) {
	c := drawing.NewCanvas()
	got := drawing.Coherence(c)
	if got < 0 || got > 1 {
		t.Errorf("Coherence() = %v, want in [0,1]", got)
	}
}
