package l2smoothing

import "gonum.org/v1/gonum/spatial/r3"

type sample struct {
	pos   r3.Vec
	t     float64
	valid bool
}

// ring is a fixed-capacity FIFO of raw samples. Invalid samples occupy a
// slot so the window always spans the last cap frames.
type ring struct {
	buf  []sample
	head int // next write position
	n    int
}

func newRing(capacity int) *ring {
	return &ring{buf: make([]sample, capacity)}
}

func (r *ring) push(s sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}

// at returns the i-th newest sample (0 = newest).
func (r *ring) at(i int) sample {
	idx := (r.head - 1 - i + 2*len(r.buf)) % len(r.buf)
	return r.buf[idx]
}

func (r *ring) validCount() int {
	c := 0
	for i := 0; i < r.n; i++ {
		if r.at(i).valid {
			c++
		}
	}
	return c
}

// oldestValidBefore returns the oldest valid sample with timestamp < t.
func (r *ring) oldestValidBefore(t float64) (sample, bool) {
	for i := r.n - 1; i >= 0; i-- {
		s := r.at(i)
		if s.valid && s.t < t {
			return s, true
		}
	}
	return sample{}, false
}
