package rollout

import (
	"math"
	"time"

	rerrors "github.com/systmms/rollops/internal/errors"
)

// Checkpoint is one planned traffic step: the candidate weight to apply and
// how long to hold it before the health gate runs.
type Checkpoint struct {
	Weight int
	Hold   time.Duration
}

// PlanCheckpoints produces the ordered weight checkpoints for the linear
// and exponential strategies. The sequence is non-decreasing and its final
// element always equals maxWeight. The manual strategy has no precomputed
// plan; see ManualCheckpoint.
func PlanCheckpoints(strategy Strategy, maxWeight int, totalDuration, stepInterval time.Duration) ([]Checkpoint, error) {
	if maxWeight <= 0 || maxWeight > 100 {
		return nil, rerrors.InvalidSpecError{Field: "max_weight", Value: maxWeight, Message: "must be between 1 and 100"}
	}

	switch strategy {
	case StrategyLinear:
		return planLinear(maxWeight, totalDuration, stepInterval), nil
	case StrategyExponential:
		return planExponential(maxWeight, stepInterval), nil
	case StrategyManual:
		return nil, rerrors.InvalidSpecError{
			Field:   "strategy",
			Value:   string(strategy),
			Message: "manual strategy checkpoints come from operator requests",
		}
	default:
		return nil, rerrors.InvalidSpecError{
			Field:   "strategy",
			Value:   string(strategy),
			Message: "must be one of linear, exponential, manual",
		}
	}
}

// planLinear divides the duration into equal steps. A step interval at or
// above the total duration degenerates to a 0% warmup checkpoint followed
// by maxWeight directly.
func planLinear(maxWeight int, totalDuration, stepInterval time.Duration) []Checkpoint {
	if stepInterval >= totalDuration {
		return []Checkpoint{
			{Weight: 0, Hold: stepInterval},
			{Weight: maxWeight, Hold: stepInterval},
		}
	}

	stepCount := int(totalDuration / stepInterval)
	checkpoints := make([]Checkpoint, 0, stepCount)
	previous := 0
	for i := 1; i <= stepCount; i++ {
		weight := int(math.Round(float64(i) * float64(maxWeight) / float64(stepCount)))
		if weight <= previous {
			// Rounding collision on fine-grained plans; keep strictly increasing.
			continue
		}
		checkpoints = append(checkpoints, Checkpoint{Weight: weight, Hold: stepInterval})
		previous = weight
	}
	return checkpoints
}

// planExponential starts at the floor and doubles until the weight clamps
// to maxWeight. The plan length depends on maxWeight, not the duration.
func planExponential(maxWeight int, stepInterval time.Duration) []Checkpoint {
	var checkpoints []Checkpoint
	weight := exponentialFloor
	for {
		if weight >= maxWeight {
			checkpoints = append(checkpoints, Checkpoint{Weight: maxWeight, Hold: stepInterval})
			return checkpoints
		}
		checkpoints = append(checkpoints, Checkpoint{Weight: weight, Hold: stepInterval})
		weight *= 2
	}
}

// ManualCheckpoint validates one operator-requested weight against the
// rollout's ceiling and the monotonicity rule (weight never decreases
// except on rollback).
func ManualCheckpoint(weight, currentWeight, maxWeight int, hold time.Duration) (Checkpoint, error) {
	if weight <= 0 || weight > maxWeight {
		return Checkpoint{}, rerrors.InvalidSpecError{
			Field:   "weight",
			Value:   weight,
			Message: "must be between 1 and the rollout's max weight",
		}
	}
	if weight < currentWeight {
		return Checkpoint{}, rerrors.InvalidSpecError{
			Field:   "weight",
			Value:   weight,
			Message: "weight cannot decrease during an active rollout, abort instead",
		}
	}
	return Checkpoint{Weight: weight, Hold: hold}, nil
}
