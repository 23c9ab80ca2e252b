// Package history keeps the bounded trailing sample windows that back
// the dashboard charts. Each metric holds at most its capacity; the
// oldest sample falls off when a new reading arrives, and statistics
// reflect only what is still in the window.
package history

import "time"

// DefaultCapacity bounds the trailing window per metric. Charts never
// see more samples than this.
const DefaultCapacity = 12

// Point is one charted sample.
type Point struct {
	Value float64
	Time  time.Time
}

// Series is the trailing window for a single metric.
type Series struct {
	points []Point
	cap    int
}

func newSeries(capacity int) *Series {
	return &Series{points: make([]Point, 0, capacity), cap: capacity}
}

// Push appends a sample, dropping the oldest when the window is full.
func (s *Series) Push(value float64, t time.Time) {
	p := Point{Value: value, Time: t}
	if len(s.points) == s.cap {
		copy(s.points, s.points[1:])
		s.points[len(s.points)-1] = p
		return
	}
	s.points = append(s.points, p)
}

// Len returns the number of samples currently in the window.
func (s *Series) Len() int {
	return len(s.points)
}

// Window returns up to n of the most recent samples, oldest first.
func (s *Series) Window(n int) []Point {
	if n <= 0 || len(s.points) == 0 {
		return nil
	}
	start := len(s.points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(s.points)-start)
	copy(out, s.points[start:])
	return out
}

// Min returns the smallest value in the window, or 0 when empty.
func (s *Series) Min() float64 {
	if len(s.points) == 0 {
		return 0
	}
	min := s.points[0].Value
	for _, p := range s.points[1:] {
		if p.Value < min {
			min = p.Value
		}
	}
	return min
}

// Peak returns the largest value in the window, or 0 when empty.
func (s *Series) Peak() float64 {
	if len(s.points) == 0 {
		return 0
	}
	peak := s.points[0].Value
	for _, p := range s.points[1:] {
		if p.Value > peak {
			peak = p.Value
		}
	}
	return peak
}

// Avg returns the mean value across the window, or 0 when empty.
func (s *Series) Avg() float64 {
	if len(s.points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range s.points {
		sum += p.Value
	}
	return sum / float64(len(s.points))
}

// Store holds one series per metric name.
type Store struct {
	capacity int
	series   map[string]*Series
}

// NewStore creates a store with the given per-metric window capacity.
func NewStore(capacity int) *Store {
	return &Store{
		capacity: capacity,
		series:   make(map[string]*Series),
	}
}

// Record appends a sample to the named metric's series, creating the
// series on first use.
func (s *Store) Record(metric string, value float64, t time.Time) {
	sr, ok := s.series[metric]
	if !ok {
		sr = newSeries(s.capacity)
		s.series[metric] = sr
	}
	sr.Push(value, t)
}

// Get returns the series for a metric, or nil when nothing has been
// recorded for it.
func (s *Store) Get(metric string) *Series {
	return s.series[metric]
}
