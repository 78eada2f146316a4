// Package assets loads images, depth maps and fonts off the render thread.
// Every failure is recoverable: callers fall back to a flat colour, a flat
// depth or the bundled font.
package assets

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp"

	"github.com/Ceep-LLC/mivra.graphics/field"
)

// ErrNotFound is returned when an asset path does not exist or is empty.
var ErrNotFound = errors.New("asset not found")

// Future is the pending result of a background load.
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Go runs load on its own goroutine.
func Go[T any](load func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.val, f.err = load()
	}()
	return f
}

// Resolved returns a future that is already complete.
func Resolved[T any](v T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), val: v, err: err}
	close(f.done)
	return f
}

// Done is closed when the load finishes.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Poll returns the result without blocking. ok is false while loading.
func (f *Future[T]) Poll() (v T, ok bool, err error) {
	select {
	case <-f.done:
		return f.val, true, f.err
	default:
		return v, false, nil
	}
}

// Wait blocks until the load finishes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func open(path string) (*os.File, error) {
	if path == "" {
		return nil, ErrNotFound
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return file, err
}

// DecodeImage decodes a PNG, JPEG, GIF, BMP or WebP file.
func DecodeImage(path string) (image.Image, error) {
	file, err := open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}
	return img, nil
}

// FieldFromImage converts img to a premultiplied float field.
func FieldFromImage(img image.Image) *field.Field {
	b := img.Bounds()
	f := field.New(b.Dx(), b.Dy())
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			r, g, bl, a := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			f.Set(x, y, [4]float32{float32(r) / 0xffff, float32(g) / 0xffff, float32(bl) / 0xffff, float32(a) / 0xffff})
		}
	}
	return f
}

// LoadImage decodes path into a field.
func LoadImage(path string) (*field.Field, error) {
	img, err := DecodeImage(path)
	if err != nil {
		return nil, err
	}
	return FieldFromImage(img), nil
}

// LoadDepth decodes a depth map into a field whose channels all hold depth
// in [0,1], downscaled so neither side exceeds maxDim (0 keeps full size).
func LoadDepth(path string, maxDim int) (*field.Field, error) {
	img, err := DecodeImage(path)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxDim > 0 && max(w, h) > maxDim {
		if w >= h {
			w, h = maxDim, max(1, h*maxDim/w)
		} else {
			w, h = max(1, w*maxDim/h), maxDim
		}
	}
	gray := image.NewGray16(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(gray, gray.Bounds(), img, b, xdraw.Src, nil)

	f := field.New(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			d := float32(gray.Gray16At(x, y).Y) / 0xffff
			f.Set(x, y, [4]float32{d, d, d, 1})
		}
	}
	return f, nil
}

var fallbackFont = sync.OnceValue(func() *opentype.Font {
	f, err := opentype.Parse(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("assets: bundled font: %v", err))
	}
	return f
})

// Fallback returns the bundled Go Bold face.
func Fallback() *opentype.Font { return fallbackFont() }

// LoadFont parses an OpenType or TrueType file.
func LoadFont(path string) (*opentype.Font, error) {
	if path == "" {
		return nil, ErrNotFound
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing font %s: %w", path, err)
	}
	return f, nil
}

// FontOrFallback loads path, logging and substituting the bundled face on
// any failure. An empty path selects the bundled face silently.
func FontOrFallback(path string, log *slog.Logger) *opentype.Font {
	if path == "" {
		return Fallback()
	}
	f, err := LoadFont(path)
	if err != nil {
		if log == nil {
			log = slog.Default()
		}
		log.Warn("font load failed, using fallback", "path", path, "error", err)
		return Fallback()
	}
	return f
}
