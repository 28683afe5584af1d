package dsp

// exclusionRange marks frames during which the device's own transmitter was
// active; correlation values observed there must not be trusted.
type exclusionRange struct {
	start uint64
	end   uint64
}

// ExclusionTracker holds a bounded set of exclusion ranges. Ranges older than
// the TTL (relative to the frame passed to Exclude) are dropped whenever a
// new range is added, so stale entries never accumulate.
type ExclusionTracker struct {
	ranges []exclusionRange
	ttl    uint64 // frames
}

// NewExclusionTracker creates a tracker that prunes ranges ending more than
// ttlFrames before the most recently added range.
func NewExclusionTracker(ttlFrames uint64) *ExclusionTracker {
	return &ExclusionTracker{
		ranges: make([]exclusionRange, 0, 16),
		ttl:    ttlFrames,
	}
}

// Exclude marks [startFrame, endFrame] as untrusted and prunes stale ranges.
func (t *ExclusionTracker) Exclude(startFrame, endFrame uint64) {
	t.prune(startFrame)
	t.ranges = append(t.ranges, exclusionRange{start: startFrame, end: endFrame})
}

// Excluded reports whether frame falls inside any tracked range.
func (t *ExclusionTracker) Excluded(frame uint64) bool {
	for _, r := range t.ranges {
		if frame >= r.start && frame <= r.end {
			return true
		}
	}
	return false
}

// Clear drops all tracked ranges.
func (t *ExclusionTracker) Clear() {
	t.ranges = t.ranges[:0]
}

func (t *ExclusionTracker) prune(now uint64) {
	if now < t.ttl {
		return
	}
	cutoff := now - t.ttl
	kept := t.ranges[:0]
	for _, r := range t.ranges {
		if r.end >= cutoff {
			kept = append(kept, r)
		}
	}
	t.ranges = kept
}
