package timing

import (
	"sync/atomic"
	"testing"
	"time"
)

type countingStepper struct {
	n atomic.Int64
}

func (c *countingStepper) Step() { c.n.Add(1) }

func TestDriverStepsAtFixedRate(t *testing.T) {
	stepper := &countingStepper{}
	d := New(Config{Hz: 200}, stepper, nil)

	go d.Run()
	time.Sleep(60 * time.Millisecond)
	d.Stop()

	if stepper.n.Load() < 5 {
		t.Fatalf("expected several steps within 60ms at 200Hz, got %d", stepper.n.Load())
	}
}

func TestDriverNeverDropsLogicSteps(t *testing.T) {
	stepper := &countingStepper{}
	var displaySkips int
	d := New(Config{Hz: 1000, CoalesceFactor: 1}, stepper, func(frame int64, isDisplay bool) {
		if !isDisplay {
			displaySkips++
		}
	})

	go d.Run()
	time.Sleep(30 * time.Millisecond)
	d.Stop()

	if stepper.n.Load() == 0 {
		t.Fatalf("expected at least one logic step")
	}
}

func TestDriverFrameCounterMonotonic(t *testing.T) {
	stepper := &countingStepper{}
	d := New(Config{Hz: 500}, stepper, nil)

	go d.Run()
	time.Sleep(20 * time.Millisecond)
	d.Stop()

	if d.Frame() != stepper.n.Load() {
		t.Fatalf("Frame() = %d, want %d (matching stepper call count)", d.Frame(), stepper.n.Load())
	}
}
