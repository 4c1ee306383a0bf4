package conversion

import "fmt"

// Retry schedule constants.
const (
	// MinFPS is the lowest sampling rate a retry will use.
	MinFPS = 5
	// fpsStep is subtracted from the base rate per retry.
	fpsStep = 2
	// scaleStep is the fraction of the base scale removed per retry.
	scaleStep = 0.2
	// MaxRetries is the largest retry count whose scale stays positive.
	MaxRetries = 4
)

// Plan is the parameter set of one encode attempt. Attempt 0 is the
// caller's request; later plans are derived from it, never edited.
type Plan struct {
	Attempt int
	FPS     int
	Scale   float64
}

func (p Plan) String() string {
	return fmt.Sprintf("attempt=%d fps=%d scale=%.2f", p.Attempt, p.FPS, p.Scale)
}

// NextPlan derives the plan of retry n (n >= 1) from the base request:
// fps = max(MinFPS, base.FPS - 2n) and never above base.FPS,
// scale = base.Scale * (1 - 0.2n).
func NextPlan(base Plan, n int) Plan {
	fps := base.FPS - fpsStep*n
	if fps < MinFPS {
		fps = MinFPS
	}
	if fps > base.FPS {
		fps = base.FPS
	}
	return Plan{
		Attempt: n,
		FPS:     fps,
		Scale:   base.Scale * (1 - scaleStep*float64(n)),
	}
}
