package motor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// TrajectoryLaw names an interpolation law for point-to-point moves.
type TrajectoryLaw string

const (
	Linear      TrajectoryLaw = "linear"
	Cubic       TrajectoryLaw = "cubic"
	MinimumJerk TrajectoryLaw = "minimum_jerk"
)

// EvaluateTrajectory maps elapsed time onto a (position, velocity) waypoint
// between startPos and endPos. It is pure; the caller owns time. Outside
// [0, totalDuration] the boundary values are returned with zero velocity.
// totalDuration must be positive: a step command has no trajectory and must
// be issued directly.
func EvaluateTrajectory(law TrajectoryLaw, startPos, endPos, elapsed, totalDuration float64) (position, velocity float64, err error) {
	if totalDuration <= 0 {
		return 0, 0, fmt.Errorf("trajectory duration must be positive, got %g", totalDuration)
	}

	if elapsed <= 0 {
		return startPos, 0, nil
	}
	if elapsed >= totalDuration {
		return endPos, 0, nil
	}

	s := mgl64.Clamp(elapsed/totalDuration, 0, 1)
	delta := endPos - startPos

	switch law {
	case Linear:
		position = startPos + delta*s
		velocity = delta / totalDuration

	case Cubic:
		position = startPos + delta*(3*s*s-2*s*s*s)
		velocity = delta * (6*s - 6*s*s) / totalDuration

	case MinimumJerk:
		s2, s3 := s*s, s*s*s
		position = startPos + delta*(10*s3-15*s3*s+6*s3*s2)
		velocity = delta * (30*s2 - 60*s3 + 30*s3*s) / totalDuration

	default:
		return 0, 0, fmt.Errorf("unknown trajectory law %q", law)
	}

	return position, velocity, nil
}
