package sampler

import (
	"math"
	"testing"
)

func TestEmptySamplerReturnsNeutralElement(t *testing.T) {
	s := New(4)
	if s.Mean() != 0 || s.Median() != 0 || s.Stddev() != 0 || s.Last() != 0 || s.Max() != 0 {
		t.Fatalf("expected all aggregates to be 0 on empty sampler")
	}
}

func TestMeanAndMedianOdd(t *testing.T) {
	s := New(5)
	for _, v := range []float64{1, 2, 3, 4, 5} {
		s.Add(v)
	}
	if s.Mean() != 3 {
		t.Fatalf("Mean() = %v, want 3", s.Mean())
	}
	if s.Median() != 3 {
		t.Fatalf("Median() = %v, want 3", s.Median())
	}
}

func TestMedianEvenIsAverageOfMiddleTwo(t *testing.T) {
	s := New(4)
	for _, v := range []float64{1, 2, 3, 4} {
		s.Add(v)
	}
	if s.Median() != 2.5 {
		t.Fatalf("Median() = %v, want 2.5", s.Median())
	}
}

func TestDropOldestAtCapacity(t *testing.T) {
	s := New(3)
	for _, v := range []float64{1, 2, 3, 4} {
		s.Add(v)
	}
	got := s.Samples()
	want := []float64{2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("Samples() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Samples() = %v, want %v", got, want)
		}
	}
}

func TestLastReturnsMostRecent(t *testing.T) {
	s := New(3)
	s.Add(1)
	s.Add(2)
	s.Add(3)
	s.Add(4) // evicts 1
	if s.Last() != 4 {
		t.Fatalf("Last() = %v, want 4", s.Last())
	}
}

func TestMaxAcrossWindow(t *testing.T) {
	s := New(3)
	s.Add(5)
	s.Add(1)
	s.Add(9)
	if s.Max() != 9 {
		t.Fatalf("Max() = %v, want 9", s.Max())
	}
}

func TestStddevKnownSeries(t *testing.T) {
	s := New(4)
	for _, v := range []float64{2, 4, 4, 4} {
		s.Add(v)
	}
	// mean=3.5, variance=((1.5^2)+(0.5^2)*3)/4 = (2.25+0.75)/4=0.75
	want := math.Sqrt(0.75)
	if math.Abs(s.Stddev()-want) > 1e-9 {
		t.Fatalf("Stddev() = %v, want %v", s.Stddev(), want)
	}
}

func TestMeanRangeExcludesOutliers(t *testing.T) {
	s := New(5)
	for _, v := range []float64{1, 2, 3, 100, 200} {
		s.Add(v)
	}
	got := s.MeanRange(0, 10)
	want := 2.0 // mean of 1,2,3
	if got != want {
		t.Fatalf("MeanRange(0,10) = %v, want %v", got, want)
	}
}

func TestResetClearsSamples(t *testing.T) {
	s := New(3)
	s.Add(1)
	s.Add(2)
	s.Reset()
	if s.Len() != 0 {
		t.Fatalf("expected Len() 0 after Reset, got %d", s.Len())
	}
}
