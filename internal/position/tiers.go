// Package position runs the order lifecycle for one instrument: the
// market entry, tiered limit exits at the signal's target levels, and
// the end-of-signal sweep that flattens whatever is left.
package position

import "math"

// TierQuantities splits total across the ratio slots (percent values).
// Integer division truncates each slot; the remainder lands in the last
// slot so the tiers always sum to total.
func TierQuantities(total int, ratios []int) []int {
	out := make([]int, len(ratios))
	allocated := 0
	for i, r := range ratios {
		q := total * r / 100
		out[i] = q
		allocated += q
	}
	if len(out) > 0 {
		out[len(out)-1] += total - allocated
	}
	return out
}

// RoundToTick snaps price to the nearest exchange tick.
func RoundToTick(price, tick float64) float64 {
	if tick <= 0 {
		return price
	}
	return math.Round(price/tick) * tick
}
