package ping

import (
	"context"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"device-inventory-backend/config"
	"device-inventory-backend/internal/model"
	"device-inventory-backend/internal/store"
)

// stopWait bounds how long Stop blocks for an in-flight sweep to finish.
const stopWait = 5 * time.Second

// ChangeNotifier is told about devices whose status flipped during a sweep.
type ChangeNotifier interface {
	Dispatch(deviceID int64, oldStatus, newStatus string)
}

// runner fires a job on a recurring interval until the context is cancelled.
// The job itself is responsible for coalescing overlapping runs.
type runner interface {
	Run(ctx context.Context, interval time.Duration, job func())
}

// tickerRunner fires on a fixed cadence backed by time.Ticker.
type tickerRunner struct{}

func (tickerRunner) Run(ctx context.Context, interval time.Duration, job func()) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job()
			// A tick that elapsed while the job ran is buffered in the
			// channel and would fire back-to-back; drop it so missed
			// ticks are skipped, not queued.
			select {
			case <-ticker.C:
			default:
			}
		}
	}
}

// loopRunner is the fallback timer loop: each interval starts counting when
// the previous job returns.
type loopRunner struct{}

func (loopRunner) Run(ctx context.Context, interval time.Duration, job func()) {
	timer := time.NewTimer(interval)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			job()
			timer.Reset(interval)
		}
	}
}

// Scheduler periodically sweeps every device, probing reachability and
// persisting the observed status. At most one sweep executes at a time; a
// tick that arrives while a sweep is still running is skipped.
type Scheduler struct {
	store    store.Store
	prober   Prober
	notifier ChangeNotifier

	enabled bool
	workers int
	run     runner

	timeout time.Duration

	// lifecycle serializes whole Start/Stop replace sequences so two
	// concurrent Starts cannot each install a worker.
	lifecycle sync.Mutex

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	sweeping atomic.Bool
}

// NewScheduler creates a scheduler wired to the given store and prober.
// notifier may be nil.
func NewScheduler(cfg *config.Config, st store.Store, prober Prober, notifier ChangeNotifier) *Scheduler {
	var run runner = loopRunner{}
	if cfg.Ping.UseTicker {
		run = tickerRunner{}
	}
	return &Scheduler{
		store:    st,
		prober:   prober,
		notifier: notifier,
		enabled:  cfg.Ping.Enabled,
		workers:  cfg.Ping.Workers,
		run:      run,
	}
}

// Start begins the recurring sweep. Disabled configuration or a
// non-positive interval leaves the scheduler stopped. Starting while
// already running replaces the previous worker rather than stacking a
// second one.
func (s *Scheduler) Start(interval, timeout time.Duration) {
	if !s.enabled {
		log.Println("Reachability checks are disabled. Scheduler will not start.")
		return
	}
	if interval <= 0 {
		log.Printf("Invalid sweep interval %v; scheduler will not start.", interval)
		return
	}

	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.halt()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	s.timeout = timeout

	go func() {
		defer close(done)
		log.Printf("Reachability scheduler started (interval=%v, timeout=%v).", interval, timeout)
		s.run.Run(ctx, interval, func() {
			s.SweepOnce(ctx)
		})
		log.Println("Reachability scheduler worker exiting.")
	}()
}

// Stop signals the worker to exit and waits, bounded, until it has. Safe to
// call when never started and safe to call twice.
func (s *Scheduler) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.halt()
}

func (s *Scheduler) halt() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()

	select {
	case <-done:
	case <-time.After(stopWait):
		log.Println("Timed out waiting for reachability worker to stop.")
	}
}

// SweepOnce runs a single sweep unless one is already in flight, in which
// case it is skipped rather than queued. Reports whether the sweep ran.
func (s *Scheduler) SweepOnce(ctx context.Context) bool {
	if !s.sweeping.CompareAndSwap(false, true) {
		log.Println("Previous sweep still running; skipping this tick.")
		return false
	}
	defer s.sweeping.Store(false)

	s.sweep(ctx)
	return true
}

// sweep probes every device with an address and persists the result.
// Per-device failures are counted and logged but never abort the sweep.
func (s *Scheduler) sweep(ctx context.Context) {
	devices, err := s.store.List(ctx, nil)
	if err != nil {
		log.Printf("Unable to list devices for sweep: %v", err)
		return
	}
	if len(devices) == 0 {
		return
	}

	var failures atomic.Int64

	jobs := make(chan model.Device)
	var wg sync.WaitGroup
	workers := s.workers
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for dev := range jobs {
				if !s.checkDevice(ctx, dev) {
					failures.Add(1)
				}
			}
		}()
	}

	probed := 0
	for _, dev := range devices {
		if dev.ID == 0 || dev.IPAddress == "" {
			continue
		}
		probed++
		jobs <- dev
	}
	close(jobs)
	wg.Wait()

	log.Printf("Sweep finished: %d devices probed, %d failures.", probed, failures.Load())
}

// checkDevice probes one device and writes {status, last_ping} through the
// store. Reports whether the persist succeeded.
func (s *Scheduler) checkDevice(ctx context.Context, dev model.Device) bool {
	result := s.prober.Probe(ctx, dev.IPAddress, s.timeout)

	now := time.Now().UTC()
	updates := store.Updates{
		Status:   &result.Status,
		LastPing: &now,
	}
	if _, err := s.store.Update(ctx, strconv.FormatInt(dev.ID, 10), updates); err != nil {
		log.Printf("Failed to update device %d after probe: %v", dev.ID, err)
		return false
	}

	if s.notifier != nil && dev.Status != result.Status {
		s.notifier.Dispatch(dev.ID, dev.Status, result.Status)
	}
	return true
}
