// internal/staking/schedule.go
package staking

import (
	"fmt"
	"sort"
)

// ValidateSchedule checks that the reward schedule is usable: non-empty,
// index-aligned, and strictly increasing in time.
func ValidateSchedule(timelines []uint32, percentages []uint8) error {
	if len(timelines) == 0 {
		return fmt.Errorf("reward timelines are empty: %w", ErrInvalidScheduleConfig)
	}
	if len(timelines) != len(percentages) {
		return fmt.Errorf("%d timelines vs %d percentages: %w",
			len(timelines), len(percentages), ErrInvalidScheduleConfig)
	}
	for i := 1; i < len(timelines); i++ {
		if timelines[i] <= timelines[i-1] {
			return fmt.Errorf("timeline %d (%d) does not exceed timeline %d (%d): %w",
				i, timelines[i], i-1, timelines[i-1], ErrInvalidScheduleConfig)
		}
	}
	return nil
}

// ResolveTier returns the largest tier index whose threshold has elapsed.
//
// The policy is a floor over the thresholds, so it is monotonic in elapsed:
// a later claim never resolves to a lower tier than an earlier one.
func ResolveTier(elapsed uint64, timelines []uint32) (int, error) {
	if len(timelines) == 0 {
		return 0, fmt.Errorf("no reward timelines: %w", ErrInvalidScheduleConfig)
	}
	// first index whose threshold is still in the future
	next := sort.Search(len(timelines), func(i int) bool {
		return uint64(timelines[i]) > elapsed
	})
	if next == 0 {
		return 0, fmt.Errorf("elapsed %d below first threshold %d: %w", elapsed, timelines[0], ErrNoTierReached)
	}
	return next - 1, nil
}
