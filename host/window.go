package host

import (
	"log/slog"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/Ceep-LLC/mivra.graphics/input"
	"github.com/Ceep-LLC/mivra.graphics/pipeline"
	"github.com/Ceep-LLC/mivra.graphics/renderer"
	"github.com/Ceep-LLC/mivra.graphics/stage"
	"github.com/Ceep-LLC/mivra.graphics/telemetry"
)

// WindowOptions configures an interactive run.
type WindowOptions struct {
	Title     string
	Width     int
	Height    int
	TargetFPS int
	DPR       float64 // 0 asks the window
	MaxFrames int     // 0 runs until the window closes
	HUD       bool
	Perf      *telemetry.PerfCollector
	LogEvery  int
	Logger    *slog.Logger

	// Overlay draws extra UI after the frame, e.g. tuning sliders.
	Overlay func()
}

// pointer is the raw window state input is derived from.
type pointer struct {
	X, Y    float64
	Down    bool
	Space   bool
	Enter   bool
	Focused bool
	Hidden  bool
}

// translate turns the change between two polls into raw input events.
func translate(prev, cur pointer, now time.Time) []input.Event {
	var evs []input.Event
	if cur.X != prev.X || cur.Y != prev.Y {
		evs = append(evs, input.Event{Kind: input.Move, X: cur.X, Y: cur.Y, Time: now})
	}
	if cur.Down != prev.Down {
		kind := input.Up
		if cur.Down {
			kind = input.Down
		}
		evs = append(evs, input.Event{Kind: kind, X: cur.X, Y: cur.Y, Time: now})
	}
	for _, k := range []struct {
		was, is bool
		name    string
	}{
		{prev.Space, cur.Space, input.KeySpace},
		{prev.Enter, cur.Enter, input.KeyEnter},
	} {
		switch {
		case k.is && !k.was:
			evs = append(evs, input.Event{Kind: input.KeyDown, Key: k.name, Time: now})
		case !k.is && k.was:
			evs = append(evs, input.Event{Kind: input.KeyUp, Key: k.name, Time: now})
		}
	}
	// Leaving the window mid-press cancels it
	if prev.Focused && !cur.Focused && prev.Down {
		evs = append(evs, input.Event{Kind: input.Cancel, X: cur.X, Y: cur.Y, Time: now})
	}
	return evs
}

func poll() pointer {
	p := pointer{
		Down:    rl.IsMouseButtonDown(rl.MouseButtonLeft),
		Space:   rl.IsKeyDown(rl.KeySpace),
		Enter:   rl.IsKeyDown(rl.KeyEnter),
		Focused: rl.IsWindowFocused(),
		Hidden:  rl.IsWindowMinimized() || rl.IsWindowHidden(),
	}
	if rl.GetTouchPointCount() > 0 {
		t := rl.GetTouchPosition(0)
		p.X, p.Y = float64(t.X), float64(t.Y)
		p.Down = true
		return p
	}
	m := rl.GetMousePosition()
	p.X, p.Y = float64(m.X), float64(m.Y)
	return p
}

func windowSize(dpr float64) pipeline.Size {
	if dpr <= 0 {
		dpr = float64(rl.GetWindowScaleDPI().X)
	}
	return pipeline.Size{Width: float64(rl.GetScreenWidth()), Height: float64(rl.GetScreenHeight()), DPR: dpr}
}

// Window opens a raylib window and runs st until the window closes. Mouse,
// touch and Space/Enter become input events, resizes reach every layer, and
// minimizing or losing focus pauses the stage.
func Window(st *stage.Stage, opts WindowOptions) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagWindowHighdpi)
	rl.InitWindow(int32(opts.Width), int32(opts.Height), opts.Title)
	defer rl.CloseWindow()
	if opts.TargetFPS > 0 {
		rl.SetTargetFPS(int32(opts.TargetFPS))
	}

	presenter := renderer.NewPresenter()
	defer presenter.Unload()
	hud := renderer.NewHUD(opts.Title)

	size := windowSize(opts.DPR)
	st.Resize(size)
	prev := pointer{Focused: true}
	frames := 0

	for !rl.WindowShouldClose() {
		now := time.Now()
		cur := poll()
		for _, ev := range translate(prev, cur, now) {
			st.Dispatch(ev)
		}
		if visible := cur.Focused && !cur.Hidden; visible != st.Visible() {
			log.Debug("visibility changed", "visible", visible)
			st.SetVisible(visible)
		}
		prev = cur

		if rl.IsWindowResized() {
			if sz := windowSize(opts.DPR); sz != size {
				size = sz
				st.Resize(sz)
			}
		}

		if opts.Perf != nil {
			opts.Perf.StartFrame()
		}
		out := st.Frame(now)
		if opts.Perf != nil {
			opts.Perf.StartPhase(telemetry.PhasePresent)
		}

		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		presenter.Present(out, int32(rl.GetScreenWidth()), int32(rl.GetScreenHeight()))
		if opts.HUD {
			var ms float64
			if opts.Perf != nil {
				ms = float64(opts.Perf.Stats().AvgFrame) / float64(time.Millisecond)
			}
			hud.Draw(renderer.HUDData{
				Layers:  st.Layers(),
				Frame:   uint64(frames),
				FPS:     rl.GetFPS(),
				FrameMS: ms,
				Visible: st.Visible(),
			})
			hud.DrawControls(int32(rl.GetScreenHeight()), "Hold mouse / Space / Enter | Esc quit")
		}
		if opts.Overlay != nil {
			opts.Overlay()
		}
		rl.EndDrawing()

		frames++
		if opts.Perf != nil {
			opts.Perf.EndFrame()
			opts.Perf.RecordPresent()
			if opts.LogEvery > 0 && frames%opts.LogEvery == 0 {
				log.Info("perf", "frame", frames, "stats", opts.Perf.Stats())
			}
		}
		if opts.MaxFrames > 0 && frames >= opts.MaxFrames {
			break
		}
	}
}
