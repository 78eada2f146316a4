package input

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied means the platform refused device orientation.
	// The sampler keeps working from pointer input alone.
	ErrPermissionDenied = errors.New("input: orientation permission denied")
	// ErrNoGesture means orientation was requested outside a user gesture.
	ErrNoGesture = errors.New("input: orientation requires a user gesture")
)

// PermissionRequester asks the platform for device-orientation access.
// A nil return means access was granted.
type PermissionRequester interface {
	RequestOrientation(ctx context.Context) error
}

// Tilt range mapped across the full surface, in degrees.
const (
	tiltRange   = 90.0
	restingBeta = 45.0 // phone held at a comfortable reading angle
)

// EnableOrientation subscribes the sampler to orientation events. It must be
// called with the user gesture that triggered it (a press or key). On denial
// it logs at debug level and returns ErrPermissionDenied; pointer input
// continues to work. The returned cancel function unsubscribes.
func (s *Sampler) EnableOrientation(ctx context.Context, gesture Event, req PermissionRequester) (cancel func(), err error) {
	switch gesture.Kind {
	case Down, Up, KeyDown:
	default:
		return func() {}, ErrNoGesture
	}
	if req != nil {
		if err := req.RequestOrientation(ctx); err != nil {
			s.log.Debug("orientation unavailable, pointer only", "error", err)
			return func() {}, fmt.Errorf("%w: %v", ErrPermissionDenied, err)
		}
	}
	s.orientation = true
	return func() { s.orientation = false }, nil
}

// OrientationEnabled reports whether orientation events are consumed.
func (s *Sampler) OrientationEnabled() bool { return s.orientation }

func orientationSample(beta, gamma float64) PositionSample {
	return PositionSample{
		X: clamp01(0.5 + gamma/tiltRange),
		Y: clamp01(0.5 + (beta-restingBeta)/tiltRange),
	}
}
