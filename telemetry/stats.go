package telemetry

import (
	"fmt"
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/Ceep-LLC/mivra.graphics/field"
)

// FrameStats describes one composited stage frame.
type FrameStats struct {
	Frame    uint64  `csv:"frame"`
	SimTime  float64 `csv:"sim_time"`
	DTMS     float64 `csv:"dt_ms"`
	Layers   int     `csv:"layers"`
	Width    int     `csv:"width"`
	Height   int     `csv:"height"`
	MeanLuma float64 `csv:"mean_luma"`
	Coverage float64 `csv:"coverage"` // mean alpha
	Checksum string  `csv:"checksum"`
}

// Percentile calculates the p-th percentile of a sorted slice.
// p should be in [0, 1]. Returns 0 if slice is empty.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[n-1]
	}

	// Linear interpolation
	idx := p * float64(n-1)
	lo := int(idx)
	hi := lo + 1
	if hi >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// Measure fills the image statistics of a composited frame.
func Measure(s *FrameStats, f *field.Field) {
	if f == nil || f.W == 0 || f.H == 0 {
		return
	}
	n := f.W * f.H
	luma := make([]float64, n)
	alpha := make([]float64, n)
	for i := 0; i < n; i++ {
		p := f.Pix[i*4 : i*4+4]
		luma[i] = 0.2126*float64(p[0]) + 0.7152*float64(p[1]) + 0.0722*float64(p[2])
		alpha[i] = float64(p[3])
	}
	s.Width, s.Height = f.W, f.H
	s.MeanLuma = floats.Sum(luma) / float64(n)
	s.Coverage = floats.Sum(alpha) / float64(n)
	s.Checksum = fmt.Sprintf("%016x", f.Checksum())
}

// LogValue implements slog.LogValuer for structured logging.
func (s FrameStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("frame", s.Frame),
		slog.Float64("sim_time", s.SimTime),
		slog.Float64("dt_ms", s.DTMS),
		slog.Int("layers", s.Layers),
		slog.Float64("mean_luma", s.MeanLuma),
		slog.Float64("coverage", s.Coverage),
		slog.String("checksum", s.Checksum),
	)
}
