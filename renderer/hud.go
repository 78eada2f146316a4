package renderer

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
)

// HUDData holds what the stats overlay shows.
type HUDData struct {
	Layers  []string
	Frame   uint64
	FPS     int32
	FrameMS float64
	Visible bool
}

// HUD draws the stats overlay and control legend.
type HUD struct {
	Title string
}

// NewHUD creates a HUD with a title line.
func NewHUD(title string) *HUD {
	return &HUD{Title: title}
}

// Draw renders the overlay in the top-left corner.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(h.Title, 10, 10, 20, rl.White)
	rl.DrawText(
		fmt.Sprintf("Frame: %d | FPS: %d | CPU: %.1f ms", data.Frame, data.FPS, data.FrameMS),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(fmt.Sprintf("Layers: %v", data.Layers), 10, 55, 16, rl.LightGray)
	if !data.Visible {
		rl.DrawText("PAUSED", 10, 75, 16, rl.Yellow)
	}
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}
