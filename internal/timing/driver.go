// Package timing implements the fixed-rate clock driver that calls
// TSS.Step exactly once per tick.
//
// Built on a time.Ticker-based tick loop with a start/quit/done
// channel trio, generalized beyond a fixed Server type into a driver
// over any Stepper, and extended with a catch-up/coalesce policy a
// plain ticker loop never implemented.
package timing

import "time"

// Stepper is anything the Driver advances exactly once per tick. TSS
// scheduler implementations satisfy this.
type Stepper interface {
	Step()
}

// Config controls the Driver's tick rate and catch-up behavior.
type Config struct {
	// Hz is the target tick rate; 0 defaults to 60.
	Hz int
	// CoalesceFactor is how many frame budgets behind real time must
	// accumulate before ticks start coalescing; 0 defaults to 5.
	CoalesceFactor int
}

func (c Config) hz() int {
	if c.Hz <= 0 {
		return 60
	}
	return c.Hz
}

func (c Config) coalesceFactor() int {
	if c.CoalesceFactor <= 0 {
		return 5
	}
	return c.CoalesceFactor
}

// Driver runs a Stepper at a fixed rate on the caller's goroutine
// (the "game thread"). When real time elapsed exceeds the frame
// budget by more than CoalesceFactor, pending logic steps are still
// all run (never dropped) but the caller-supplied display callback is
// skipped for the catch-up steps: frames are coalesced but never
// dropped, display updates may be skipped but logic updates never.
type Driver struct {
	cfg      Config
	stepper  Stepper
	onTick   func(frameIndex int64, isDisplay bool)
	quit     chan struct{}
	done     chan struct{}
	frame    int64
	interval time.Duration
}

// New returns a Driver over stepper. onTick, if non-nil, is invoked
// once per logic step with isDisplay indicating whether this step
// should also perform a display update (false during catch-up).
func New(cfg Config, stepper Stepper, onTick func(frameIndex int64, isDisplay bool)) *Driver {
	return &Driver{
		cfg:      cfg,
		stepper:  stepper,
		onTick:   onTick,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		interval: time.Second / time.Duration(cfg.hz()),
	}
}

// Run drives the ticker loop until Stop is called, blocking the
// calling goroutine. Run the game thread's I/O and command dispatch
// around a Driver running on its own goroutine.
func (d *Driver) Run() {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	last := time.Now()
	coalesceBudget := d.interval * time.Duration(d.cfg.coalesceFactor())

	for {
		select {
		case <-d.quit:
			return
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now

			steps := 1
			if elapsed > coalesceBudget {
				steps = int(elapsed / d.interval)
				if steps < 1 {
					steps = 1
				}
			}

			for i := 0; i < steps; i++ {
				d.frame++
				d.stepper.Step()
				if d.onTick != nil {
					d.onTick(d.frame, i == steps-1)
				}
			}
		}
	}
}

// Stop halts Run and blocks until the driver goroutine has exited.
func (d *Driver) Stop() {
	close(d.quit)
	<-d.done
}

// Frame returns the number of logic steps executed so far.
func (d *Driver) Frame() int64 {
	return d.frame
}
