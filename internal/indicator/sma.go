package indicator

import "index-systemv1/internal/model"

// SMA maintains a simple moving average over a rolling window of closes.
// Uses a preallocated circular buffer so each Update is O(1) and a full
// pass over n points costs O(n) per window.
type SMA struct {
	window int
	buf    []float64
	idx    int // current write position
	count  int // total values received
	sum    float64
}

// NewSMA creates an SMA over the given window. window must be >= 1.
func NewSMA(window int) *SMA {
	return &SMA{
		window: window,
		buf:    make([]float64, window),
	}
}

// Update feeds the next close price.
func (s *SMA) Update(close float64) {
	if s.count >= s.window {
		// Subtract the oldest value being overwritten.
		s.sum -= s.buf[s.idx]
	}
	s.buf[s.idx] = close
	s.sum += close
	s.idx = (s.idx + 1) % s.window
	s.count++
}

// Value returns the current average. Meaningful only when Ready.
func (s *SMA) Value() float64 {
	if s.count < s.window {
		return 0
	}
	return s.sum / float64(s.window)
}

// Ready reports whether a full window of history has been received.
func (s *SMA) Ready() bool { return s.count >= s.window }

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.idx = 0
	s.count = 0
	s.sum = 0
	for i := range s.buf {
		s.buf[i] = 0
	}
}

// ComputeSMA returns the aligned SMA line for one window over the series'
// closes. The output has exactly len(series) samples; samples at indices
// below window-1 are invalid, and a window longer than the series yields no
// valid samples at all.
func ComputeSMA(series model.Series, window int) []Point {
	out := make([]Point, len(series))
	if window < 1 {
		return out
	}
	sma := NewSMA(window)
	for i, p := range series {
		sma.Update(p.Close)
		if sma.Ready() {
			out[i] = Point{Value: sma.Value(), Valid: true}
		}
	}
	return out
}
