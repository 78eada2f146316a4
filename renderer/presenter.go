// Package renderer puts composited frames on screen through raylib.
package renderer

import (
	"image/color"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/Ceep-LLC/mivra.graphics/field"
)

// pixels converts frames to 8-bit RGBA, reusing its buffer across frames of
// the same size.
type pixels struct {
	buf  []color.RGBA
	w, h int
}

// load converts f and reports whether the size changed since the last call.
func (p *pixels) load(f *field.Field) bool {
	resized := f.W != p.w || f.H != p.h
	if resized {
		p.w, p.h = f.W, f.H
		if cap(p.buf) >= f.W*f.H {
			p.buf = p.buf[:f.W*f.H]
		} else {
			p.buf = make([]color.RGBA, f.W*f.H)
		}
	}
	f.ToColors(p.buf)
	return resized
}

// Presenter uploads each frame into a texture and draws it over the window.
type Presenter struct {
	tex         rl.Texture2D
	px          pixels
	initialized bool
	uploads     int
}

// NewPresenter creates a presenter. The texture is created on the first
// Present, which must run after the raylib window exists.
func NewPresenter() *Presenter {
	return &Presenter{}
}

// Present uploads f and draws it stretched to the screen size. A nil frame
// draws nothing.
func (p *Presenter) Present(f *field.Field, screenW, screenH int32) {
	if f == nil || f.W == 0 || f.H == 0 {
		return
	}
	if p.px.load(f) || !p.initialized {
		p.recreate()
	}
	rl.UpdateTexture(p.tex, p.px.buf)
	p.uploads++

	srcRect := rl.Rectangle{X: 0, Y: 0, Width: float32(f.W), Height: float32(f.H)}
	dstRect := rl.Rectangle{X: 0, Y: 0, Width: float32(screenW), Height: float32(screenH)}
	rl.DrawTexturePro(p.tex, srcRect, dstRect, rl.Vector2{}, 0, rl.White)
}

// recreate replaces the texture with one matching the frame size.
func (p *Presenter) recreate() {
	if p.initialized {
		rl.UnloadTexture(p.tex)
	}
	img := rl.GenImageColor(p.px.w, p.px.h, rl.Black)
	p.tex = rl.LoadTextureFromImage(img)
	rl.SetTextureFilter(p.tex, rl.FilterBilinear)
	rl.SetTextureWrap(p.tex, rl.WrapClamp)
	rl.UnloadImage(img)
	p.initialized = true
}

// Uploads returns how many frames have been uploaded.
func (p *Presenter) Uploads() int { return p.uploads }

// Unload frees GPU resources.
func (p *Presenter) Unload() {
	if !p.initialized {
		return
	}
	rl.UnloadTexture(p.tex)
	p.initialized = false
}
