package runner

import "time"

// nextBoundary returns the next wall-clock instant whose minute is a
// multiple of interval's minute count, seconds and lower zeroed: given
// now's minute M, the boundary is at M + (W - M mod W), advancing a full
// period when already aligned.
func nextBoundary(now time.Time, interval time.Duration) time.Time {
	w := int(interval / time.Minute)
	if w <= 0 {
		w = 1
	}
	minuteMark := time.Date(now.Year(), now.Month(), now.Day(), now.Hour(), now.Minute(), 0, 0, now.Location())
	add := w - (now.Minute() % w)
	if add == 0 {
		add = w
	}
	return minuteMark.Add(time.Duration(add) * time.Minute)
}

// sleepDuration returns how long to sleep from now until boundary, never
// negative (0 if already past).
func sleepDuration(now, boundary time.Time) time.Duration {
	d := boundary.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
