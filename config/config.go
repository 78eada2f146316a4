// Package config provides configuration loading and access for the visual pipelines.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all pipeline, stage and effect parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Stage     StageConfig     `yaml:"stage"`
	Ink       InkConfig       `yaml:"ink"`
	Smoke     SmokeConfig     `yaml:"smoke"`
	MetaGlow  MetaGlowConfig  `yaml:"metaglow"`
	Orb       OrbConfig       `yaml:"orb"`
	Glass     GlassConfig     `yaml:"glass"`
	Parallax  ParallaxConfig  `yaml:"parallax"`
	Wavy      WavyConfig      `yaml:"wavy"`
	PressHold PressHoldConfig `yaml:"presshold"`
	Cursor    CursorConfig    `yaml:"cursor"`
	Grain     GrainConfig     `yaml:"grain"`
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds window settings.
type ScreenConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	TargetFPS int     `yaml:"target_fps"`
	DPR       float64 `yaml:"dpr"` // Device pixel ratio reported to surfaces (0 = ask the window)
}

// PipelineConfig holds the shared frame-loop parameters.
type PipelineConfig struct {
	MaxStep              float64 `yaml:"max_step"`               // Clock delta ceiling in seconds
	ReferenceFPS         float64 `yaml:"reference_fps"`          // Frame rate per-frame constants were tuned at
	FrameRateIndependent bool    `yaml:"frame_rate_independent"` // Scale per-frame decay/smoothing by measured dt
	Workers              int     `yaml:"workers"`                // Row workers per pass (0 = GOMAXPROCS)
	RenderScale          float64 `yaml:"render_scale"`           // Fraction of backing size actually rendered
}

// StageConfig holds the layer stack mounted by the host.
type StageConfig struct {
	Background string        `yaml:"background"` // Page background behind every layer
	Layers     []LayerConfig `yaml:"layers"`
}

// LayerConfig mounts one effect on the stage.
type LayerConfig struct {
	Effect  string  `yaml:"effect"`
	Z       int     `yaml:"z"`
	Blend   string  `yaml:"blend"` // normal, additive, screen
	Opacity float64 `yaml:"opacity"`
}

// InkConfig holds the pointer-driven dye overlay parameters.
type InkConfig struct {
	DPRCeiling   float64 `yaml:"dpr_ceiling"`
	Intensity    float64 `yaml:"intensity"`     // Compose brightness
	Decay        float64 `yaml:"decay"`         // Fraction of dye lost per reference frame
	Blur         float64 `yaml:"blur"`          // 0..1 evolve blur
	FlowAmp      float64 `yaml:"flow_amp"`      // 0..1 warp strength
	FlowScale    float64 `yaml:"flow_scale"`    // Flow noise frequency
	SplatRadius  float64 `yaml:"splat_radius"`  // Base splat radius in logical px
	RadiusGain   float64 `yaml:"radius_gain"`   // Radius growth per unit speed
	Strength     float64 `yaml:"strength"`      // Base injection strength (peak density)
	StrengthGain float64 `yaml:"strength_gain"` // Strength growth per unit speed
	SpeedRef     float64 `yaml:"speed_ref"`     // Pointer speed (logical px/s) that maps to speed 1
	Chroma       float64 `yaml:"chroma"`        // 0 = ColorA, 1 = ColorB
	ColorA       string  `yaml:"color_a"`
	ColorB       string  `yaml:"color_b"`
	Bloom        float64 `yaml:"bloom"` // Pseudo-bloom added after tone mapping
}

// SmokeConfig holds the smoke trail background parameters.
type SmokeConfig struct {
	DPRCeiling  float64 `yaml:"dpr_ceiling"`
	Decay       float64 `yaml:"decay"`        // Fraction lost per reference frame
	Flow        float64 `yaml:"flow"`         // Advection speed
	FlowScale   float64 `yaml:"flow_scale"`   // Flow noise frequency
	Noise       string  `yaml:"noise"`        // value, simplex or perlin
	InkSize     float64 `yaml:"ink_size"`     // Injection radius as a fraction of surface height
	InkStrength float64 `yaml:"ink_strength"` // Injection strength at full pulse
	PulseDecay  float64 `yaml:"pulse_decay"`  // Fraction of pulse lost per reference frame
	Smoothing   float64 `yaml:"smoothing"`    // Influence smoothing factor per reference frame
	Top         string  `yaml:"top"`
	Bottom      string  `yaml:"bottom"`
	Inner       string  `yaml:"inner"` // Injection colour at the core
	Outer       string  `yaml:"outer"` // Injection colour at the rim
	Glow        float64 `yaml:"glow"`
	Soft        float64 `yaml:"soft"` // Bloom tap radius factor
	Speed       float64 `yaml:"speed"`
}

// MarchConfig holds the bounded raymarch budget shared by the SDF effects.
type MarchConfig struct {
	MaxSteps    int     `yaml:"max_steps"`
	MaxDist     float64 `yaml:"max_dist"`
	Epsilon     float64 `yaml:"epsilon"`
	MinStep     float64 `yaml:"min_step"`
	MaxStep     float64 `yaml:"max_step"`
	StepScale   float64 `yaml:"step_scale"`
	AbsStep     bool    `yaml:"abs_step"` // step by |d| so rays starting inside walk out
	GlowRadius  float64 `yaml:"glow_radius"`
	GlowFalloff float64 `yaml:"glow_falloff"`
	GlowPower   float64 `yaml:"glow_power"` // 1 = linear distance falloff, 2 = quadratic
	GlowGain    float64 `yaml:"glow_gain"`
}

// MetaGlowConfig holds the raymarched metaball background parameters.
type MetaGlowConfig struct {
	DPRCeiling float64     `yaml:"dpr_ceiling"`
	March      MarchConfig `yaml:"march"`
	TimeScale  float64     `yaml:"time_scale"`
	Smoothing  float64     `yaml:"smoothing"`
	Sway       float64     `yaml:"sway"`
	SmoothK    float64     `yaml:"smooth_k"`
	Swell      float64     `yaml:"swell"`
	BaseA      string      `yaml:"base_a"`
	BaseB      string      `yaml:"base_b"`
	InkCyan    string      `yaml:"ink_cyan"`
	InkBlue    string      `yaml:"ink_blue"`
	InkMagenta string      `yaml:"ink_magenta"`
	InkCrimson string      `yaml:"ink_crimson"`
	MixCool    float64     `yaml:"mix_cool"`
	Glow       float64     `yaml:"glow"`
	FresPow    float64     `yaml:"fres_pow"`
	CoreScale  float64     `yaml:"core_scale"`
	VeinAmp    float64     `yaml:"vein_amp"`
	VeinScale  float64     `yaml:"vein_scale"`
	DetailAmp  float64     `yaml:"detail_amp"` // Bump from the noise gradient; lower if the surface looks gritty
	SpecPow    float64     `yaml:"spec_pow"`
	SpecGain   float64     `yaml:"spec_gain"`
	AOBoost    float64     `yaml:"ao_boost"`
}

// OrbConfig holds the single luminous sphere parameters.
type OrbConfig struct {
	DPRCeiling   float64     `yaml:"dpr_ceiling"`
	March        MarchConfig `yaml:"march"`
	Radius       float64     `yaml:"radius"`
	Core         string      `yaml:"core"`
	Glow         string      `yaml:"glow"`
	GlowStrength float64     `yaml:"glow_strength"`
	NoiseAmp     float64     `yaml:"noise_amp"`
}

// GlassConfig holds the glass metaball hero parameters.
type GlassConfig struct {
	DPRCeiling float64     `yaml:"dpr_ceiling"`
	March      MarchConfig `yaml:"march"`
	Exposure   float64     `yaml:"exposure"`
	Bloom      float64     `yaml:"bloom"`
	Blue       string      `yaml:"blue"`
	Crimson    string      `yaml:"crimson"`
	Tilt       float64     `yaml:"tilt"`
	PlateA     string      `yaml:"plate_a"` // Backplate gradient start
	PlateB     string      `yaml:"plate_b"` // Backplate gradient end
	Key        string      `yaml:"key"`
	Rim        string      `yaml:"rim"`
	Tint       string      `yaml:"tint"`
	IOR        float64     `yaml:"ior"`
	Spin       float64     `yaml:"spin"`
	Smoothing  float64     `yaml:"smoothing"`
}

// ParallaxConfig holds the depth-map parallax hero parameters.
type ParallaxConfig struct {
	DPRCeiling float64 `yaml:"dpr_ceiling"`
	Image      string  `yaml:"image"`
	Depth      string  `yaml:"depth"`
	Fallback   string  `yaml:"fallback"` // Flat colour when the image is missing
	Amount     float64 `yaml:"amount"`
	CenterBias float64 `yaml:"center_bias"`
	Falloff    float64 `yaml:"falloff"`
	EdgeDamp   float64 `yaml:"edge_damp"`
	BlurSigma  float64 `yaml:"blur_sigma"`
	NoiseAmp   float64 `yaml:"noise_amp"`
	Vignette   float64 `yaml:"vignette"`
	Smoothing  float64 `yaml:"smoothing"`
	AutoMix    float64 `yaml:"auto_mix"`
}

// HeadlineLine is one line of the wavy headline.
type HeadlineLine struct {
	Text  string  `yaml:"text"`
	Align string  `yaml:"align"` // left, right, center
	Scale float64 `yaml:"scale"`
}

// WavyConfig holds the distorted headline parameters.
type WavyConfig struct {
	DPRCeiling       float64        `yaml:"dpr_ceiling"`
	Font             string         `yaml:"font"`
	Color            string         `yaml:"color"`
	BaseScale        float64        `yaml:"base_scale"` // Multiplier on the fitted font size
	Lines            []HeadlineLine `yaml:"lines"`
	MobileLines      []HeadlineLine `yaml:"mobile_lines"`
	MobileBreakpoint float64        `yaml:"mobile_breakpoint"` // Logical width at or below which MobileLines are used
	Smoothing        float64        `yaml:"smoothing"`
	BaseAmp          float64        `yaml:"base_amp"`
	BoostAmp         float64        `yaml:"boost_amp"`
	BoostRadius      float64        `yaml:"boost_radius"`
}

// PressHoldConfig holds the hold-to-enter gesture parameters. The ring is
// the cursor on the entry page: it follows the pointer and empties at the
// fill rate when released early.
type PressHoldConfig struct {
	HoldSeconds float64 `yaml:"hold_seconds"`
	Size        float64 `yaml:"size"`   // Ring diameter in logical px
	Stroke      float64 `yaml:"stroke"` // Ring line width in logical px
	Destination string  `yaml:"destination"`
	Follow      float64 `yaml:"follow"`      // Fraction of the distance to the pointer closed per reference frame
	PressScale  float64 `yaml:"press_scale"` // Whole-cursor scale while pressed
	HoldScale   float64 `yaml:"hold_scale"`  // Ring scale while holding
	GrowSeconds float64 `yaml:"grow_seconds"`
	Coarse      bool    `yaml:"coarse"`       // Touch devices: hidden until a hold starts
	FadeSeconds float64 `yaml:"fade_seconds"` // Coarse fade in/out
}

// CursorConfig holds the dot cursor shown on every other page.
type CursorConfig struct {
	DPRCeiling     float64 `yaml:"dpr_ceiling"`
	Size           float64 `yaml:"size"`  // Dot diameter in logical px
	Alpha          float64 `yaml:"alpha"` // Dot opacity
	Follow         float64 `yaml:"follow"`
	PressScale     float64 `yaml:"press_scale"`
	PressSeconds   float64 `yaml:"press_seconds"`   // Time to shrink on press
	ReleaseSeconds float64 `yaml:"release_seconds"` // Time to grow back on release
	Coarse         bool    `yaml:"coarse"`          // Touch devices show no dot
}

// GrainConfig holds the film grain overlay parameters.
type GrainConfig struct {
	DPRCeiling float64 `yaml:"dpr_ceiling"`
	Density    float64 `yaml:"density"` // Grains per backing pixel per refresh
	Fade       float64 `yaml:"fade"`    // Fraction of the previous frame faded per refresh
	Every      int     `yaml:"every"`   // Refresh every N frames
	ShadeMin   float64 `yaml:"shade_min"`
	ShadeMax   float64 `yaml:"shade_max"`
	AlphaMin   float64 `yaml:"alpha_min"`
	AlphaMax   float64 `yaml:"alpha_max"`
}

// TelemetryConfig holds frame timing parameters.
type TelemetryConfig struct {
	PerfWindow int `yaml:"perf_window"` // Frames averaged by the perf collector
	LogEvery   int `yaml:"log_every"`   // Frames between perf log lines (0 disables)
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	MaxStep     time.Duration  // Pipeline.MaxStep as a duration
	MaxStep32   float32        // Pipeline.MaxStep as float32
	FrameTime   time.Duration  // 1 / Screen.TargetFPS
	LayerIndex  map[string]int // effect name -> index into Stage.Layers
	RenderScale float32
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Unmarshal into same struct - only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// validate rejects values the pipeline cannot run with.
func (c *Config) validate() error {
	if c.Pipeline.MaxStep <= 0 {
		return fmt.Errorf("pipeline.max_step must be positive, got %v", c.Pipeline.MaxStep)
	}
	if c.Pipeline.ReferenceFPS <= 0 {
		return fmt.Errorf("pipeline.reference_fps must be positive, got %v", c.Pipeline.ReferenceFPS)
	}
	for name, d := range map[string]float64{
		"ink.decay":         c.Ink.Decay,
		"smoke.decay":       c.Smoke.Decay,
		"smoke.pulse_decay": c.Smoke.PulseDecay,
		"presshold.follow":  c.PressHold.Follow,
		"cursor.follow":     c.Cursor.Follow,
	} {
		if d <= 0 || d >= 1 {
			return fmt.Errorf("%s must be in (0,1), got %v", name, d)
		}
	}
	for i, l := range c.Stage.Layers {
		switch l.Blend {
		case "", "normal", "additive", "screen", "difference":
		default:
			return fmt.Errorf("stage.layers[%d]: unknown blend %q", i, l.Blend)
		}
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.MaxStep = time.Duration(c.Pipeline.MaxStep * float64(time.Second))
	c.Derived.MaxStep32 = float32(c.Pipeline.MaxStep)

	fps := c.Screen.TargetFPS
	if fps <= 0 {
		fps = 60
	}
	c.Derived.FrameTime = time.Second / time.Duration(fps)

	scale := c.Pipeline.RenderScale
	if scale <= 0 || scale > 1 {
		scale = 1
	}
	c.Derived.RenderScale = float32(scale)

	// Layers default to full opacity and normal blending
	for i := range c.Stage.Layers {
		l := &c.Stage.Layers[i]
		if l.Opacity == 0 {
			l.Opacity = 1
		}
		if l.Blend == "" {
			l.Blend = "normal"
		}
	}

	c.Derived.LayerIndex = make(map[string]int, len(c.Stage.Layers))
	for i, l := range c.Stage.Layers {
		c.Derived.LayerIndex[l.Effect] = i
	}
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
