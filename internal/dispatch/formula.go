package dispatch

import "math"

// jobsToStart computes the canonical dispatch formula (spec.md §4.6):
//
//	jobs_to_start = max(0, min(pending, IDLE - WAITING + 1 + floor(log10(1+pending))))
//
// The "+1 + log10(...)" term is a small logarithmic over-provision that
// keeps the farm fed under high pending demand; it is clamped to zero
// like the rest of the expression. The min with pending prevents
// dispatching more jobs than there is declared demand for.
func jobsToStart(pending, idle, waiting int) int {
	overProvision := 1 + int(math.Floor(math.Log10(1+float64(pending))))
	capacity := idle - waiting + overProvision
	n := pending
	if capacity < n {
		n = capacity
	}
	if n < 0 {
		n = 0
	}
	return n
}
