package assets

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writePNG(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "img.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(1, 0, color.RGBA{255, 0, 0, 255})
	img.Set(3, 1, color.RGBA{0, 0, 255, 255})

	f, err := LoadImage(writePNG(t, img))
	if err != nil {
		t.Fatalf("LoadImage: %v", err)
	}
	if f.W != 4 || f.H != 2 {
		t.Fatalf("size = %dx%d, want 4x2", f.W, f.H)
	}
	if got := f.At(1, 0); got != [4]float32{1, 0, 0, 1} {
		t.Errorf("red pixel = %v", got)
	}
	if got := f.At(3, 1); got != [4]float32{0, 0, 1, 1} {
		t.Errorf("blue pixel = %v", got)
	}
	if got := f.At(0, 0); got != [4]float32{} {
		t.Errorf("transparent pixel = %v", got)
	}
}

func TestMissingAndCorrupt(t *testing.T) {
	if _, err := LoadImage(filepath.Join(t.TempDir(), "nope.png")); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}
	if _, err := LoadImage(""); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty path error = %v, want ErrNotFound", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := LoadImage(bad)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Errorf("corrupt file error = %v, want a decode error", err)
	}
}

func TestLoadDepthDownscales(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(x * 4)})
		}
	}
	f, err := LoadDepth(writePNG(t, img), 16)
	if err != nil {
		t.Fatalf("LoadDepth: %v", err)
	}
	if f.W != 16 || f.H != 8 {
		t.Fatalf("size = %dx%d, want 16x8", f.W, f.H)
	}
	left, right := f.At(0, 4), f.At(15, 4)
	if left[0] >= right[0] {
		t.Errorf("depth ramp lost: left %v, right %v", left[0], right[0])
	}
	if left[0] != left[1] || left[0] != left[2] || left[3] != 1 {
		t.Errorf("depth pixel not grey and opaque: %v", left)
	}
}

func TestFuture(t *testing.T) {
	release := make(chan struct{})
	fut := Go(func() (int, error) {
		<-release
		return 42, nil
	})
	if _, ok, _ := fut.Poll(); ok {
		t.Fatal("future resolved before the load finished")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := fut.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait error = %v, want deadline exceeded", err)
	}

	close(release)
	v, err := fut.Wait(context.Background())
	if err != nil || v != 42 {
		t.Fatalf("Wait = %v, %v", v, err)
	}
	if v, ok, err := fut.Poll(); !ok || v != 42 || err != nil {
		t.Errorf("Poll after completion = %v, %v, %v", v, ok, err)
	}

	failed := Resolved(0, ErrNotFound)
	if _, ok, err := failed.Poll(); !ok || !errors.Is(err, ErrNotFound) {
		t.Errorf("resolved future Poll = %v, %v", ok, err)
	}
}

func TestFontFallback(t *testing.T) {
	if Fallback() == nil {
		t.Fatal("bundled font missing")
	}
	if f := FontOrFallback(filepath.Join(t.TempDir(), "missing.ttf"), nil); f != Fallback() {
		t.Error("missing font did not fall back")
	}
	if _, err := LoadFont(filepath.Join(t.TempDir(), "missing.ttf")); !errors.Is(err, ErrNotFound) {
		t.Errorf("LoadFont error = %v, want ErrNotFound", err)
	}
}
