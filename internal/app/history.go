package app

// DistanceRing holds the most recent distance measurements in arrival order.
// It backs the readout sparkline and reports the spread of the values it
// currently holds, so the panel can show how stable the fix is.
type DistanceRing struct {
	vals []float64
	next int
	full bool
}

// NewDistanceRing creates a ring keeping the last n measurements.
func NewDistanceRing(n int) *DistanceRing {
	return &DistanceRing{vals: make([]float64, n)}
}

// Push records a measurement, evicting the oldest once the ring is full.
func (r *DistanceRing) Push(ft float64) {
	r.vals[r.next] = ft
	r.next++
	if r.next == len(r.vals) {
		r.next = 0
		r.full = true
	}
}

// Len returns the number of measurements held.
func (r *DistanceRing) Len() int {
	if r.full {
		return len(r.vals)
	}
	return r.next
}

// Values returns the held measurements oldest first.
func (r *DistanceRing) Values() []float64 {
	if r.Len() == 0 {
		return nil
	}
	if !r.full {
		return append([]float64(nil), r.vals[:r.next]...)
	}
	out := make([]float64, 0, len(r.vals))
	out = append(out, r.vals[r.next:]...)
	out = append(out, r.vals[:r.next]...)
	return out
}

// Spread returns the lowest and highest held measurement. ok is false while
// the ring is empty.
func (r *DistanceRing) Spread() (lo, hi float64, ok bool) {
	n := r.Len()
	if n == 0 {
		return 0, 0, false
	}
	limit := len(r.vals)
	if !r.full {
		limit = r.next
	}
	lo, hi = r.vals[0], r.vals[0]
	for _, v := range r.vals[1:limit] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi, true
}
