package timeline

import (
	"math"
	"sort"
)

// DefaultSnapThreshold is the magnetic snapping distance in seconds.
const DefaultSnapThreshold = 0.5

// snapTargets collects the magnetic targets for the current state:
// the scene edges, the playhead, and every boundary of an unselected
// clip, in ascending time order. The clip named by ignoreID never
// contributes targets, so a clip cannot snap onto its own boundaries.
func snapTargets(s *State, ignoreID string) []float64 {
	targets := []float64{0, s.Duration, s.Playhead}
	for _, c := range s.Clips {
		if c.Selected || c.ID == ignoreID {
			continue
		}
		targets = append(targets, c.StartTime, c.End())
	}
	sort.Float64s(targets)
	return targets
}

// Snap returns the magnetic target closest to proposed when one lies
// within the threshold, otherwise proposed unchanged. Ties resolve to
// the first target in ascending time order. ignoreID names the clip
// being moved, whose own boundaries are not targets.
func Snap(s *State, ignoreID string, proposed, threshold float64) float64 {
	if threshold <= 0 {
		threshold = DefaultSnapThreshold
	}
	best := proposed
	bestDist := math.Inf(1)
	for _, t := range snapTargets(s, ignoreID) {
		d := math.Abs(proposed - t)
		if d <= threshold && d < bestDist {
			best = t
			bestDist = d
		}
	}
	return best
}
