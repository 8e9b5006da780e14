package overlay

import "time"

const (
	openDelay    = 100 * time.Millisecond
	openStagger  = 100 * time.Millisecond
	closeStagger = 50 * time.Millisecond
)

// Reveal returns the animation delay of each link, indexed like Links. Opening
// reveals top to bottom after the backdrop; closing hides bottom to top.
func (m *Menu) Reveal(open bool) []time.Duration {
	return RevealSchedule(len(m.links), open)
}

// RevealSchedule computes Reveal for n links.
func RevealSchedule(n int, open bool) []time.Duration {
	if n <= 0 {
		return nil
	}
	out := make([]time.Duration, n)
	for i := range out {
		if open {
			out[i] = openDelay + time.Duration(i)*openStagger
		} else {
			out[i] = time.Duration(n-1-i) * closeStagger
		}
	}
	return out
}
