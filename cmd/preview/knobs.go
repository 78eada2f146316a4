package main

import "github.com/Ceep-LLC/mivra.graphics/config"

// knob is one slider bound to a float config field.
type knob struct {
	label    string
	v        *float64
	min, max float64
}

// knobs returns the tunable parameters of effect inside cfg.
func knobs(cfg *config.Config, effect string) []knob {
	switch effect {
	case "ink":
		c := &cfg.Ink
		return []knob{
			{"Intensity", &c.Intensity, 0, 3},
			{"Decay", &c.Decay, 0.005, 0.2},
			{"Blur", &c.Blur, 0, 1},
			{"Flow amp", &c.FlowAmp, 0, 1},
			{"Splat radius", &c.SplatRadius, 5, 200},
			{"Chroma", &c.Chroma, 0, 1},
			{"Bloom", &c.Bloom, 0, 1},
		}
	case "smoke":
		c := &cfg.Smoke
		return []knob{
			{"Decay", &c.Decay, 0.005, 0.2},
			{"Flow", &c.Flow, 0, 3},
			{"Flow scale", &c.FlowScale, 0.5, 8},
			{"Ink size", &c.InkSize, 0.02, 0.5},
			{"Glow", &c.Glow, 0, 3},
			{"Smoothing", &c.Smoothing, 0.01, 1},
		}
	case "metaglow":
		c := &cfg.MetaGlow
		return []knob{
			{"Time scale", &c.TimeScale, 0, 2},
			{"Smooth k", &c.SmoothK, 0.05, 1.5},
			{"Swell", &c.Swell, 0, 0.5},
			{"Glow", &c.Glow, 0, 3},
			{"Vein amp", &c.VeinAmp, 0, 2},
			{"Detail amp", &c.DetailAmp, 0, 1},
		}
	case "orb":
		c := &cfg.Orb
		return []knob{
			{"Radius", &c.Radius, 0.2, 1.5},
			{"Glow strength", &c.GlowStrength, 0, 2},
			{"Noise amp", &c.NoiseAmp, 0, 0.2},
		}
	case "glass":
		c := &cfg.Glass
		return []knob{
			{"Exposure", &c.Exposure, 0.2, 3},
			{"Bloom", &c.Bloom, 0, 1.5},
			{"Tilt", &c.Tilt, 0, 1},
			{"IOR", &c.IOR, 1, 2},
			{"Spin", &c.Spin, 0, 1},
		}
	case "parallax":
		c := &cfg.Parallax
		return []knob{
			{"Amount", &c.Amount, 0, 0.15},
			{"Falloff", &c.Falloff, 0, 3},
			{"Blur sigma", &c.BlurSigma, 0, 3},
			{"Vignette", &c.Vignette, 0, 1},
			{"Auto mix", &c.AutoMix, 0, 1},
		}
	case "wavy":
		c := &cfg.Wavy
		return []knob{
			{"Base amp", &c.BaseAmp, 0, 0.05},
			{"Boost amp", &c.BoostAmp, 0, 0.2},
			{"Boost radius", &c.BoostRadius, 0.05, 1},
			{"Smoothing", &c.Smoothing, 0.01, 1},
		}
	case "presshold":
		c := &cfg.PressHold
		return []knob{
			{"Hold seconds", &c.HoldSeconds, 0.2, 3},
			{"Size", &c.Size, 24, 160},
			{"Stroke", &c.Stroke, 1, 12},
			{"Follow", &c.Follow, 0.01, 0.99},
			{"Press scale", &c.PressScale, 0.5, 1},
			{"Hold scale", &c.HoldScale, 1, 2},
		}
	case "cursor":
		c := &cfg.Cursor
		return []knob{
			{"Size", &c.Size, 4, 80},
			{"Alpha", &c.Alpha, 0, 1},
			{"Follow", &c.Follow, 0.01, 0.99},
			{"Press scale", &c.PressScale, 0.5, 1},
		}
	case "grain":
		c := &cfg.Grain
		return []knob{
			{"Density", &c.Density, 0, 0.2},
			{"Fade", &c.Fade, 0, 1},
		}
	}
	return nil
}
