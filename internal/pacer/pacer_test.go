package pacer

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Floor:         10 * time.Millisecond,
		Ceiling:       40 * time.Millisecond,
		BackoffFactor: 2,
		RelaxFactor:   0.5,
		RelaxAfter:    1,
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero floor", func(c *Config) { c.Floor = 0 }, true},
		{"ceiling below floor", func(c *Config) { c.Ceiling = c.Floor / 2 }, true},
		{"backoff factor of one", func(c *Config) { c.BackoffFactor = 1 }, true},
		{"relax factor of one", func(c *Config) { c.RelaxFactor = 1 }, true},
		{"relax after zero", func(c *Config) { c.RelaxAfter = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_InvalidConfigFallsBack(t *testing.T) {
	a := New(Config{})
	if got := a.Interval(); got != DefaultFloor {
		t.Errorf("Interval() = %s, want %s", got, DefaultFloor)
	}
}

func TestBackoff_BoundedByCeiling(t *testing.T) {
	a := New(testConfig())

	want := []time.Duration{20 * time.Millisecond, 40 * time.Millisecond, 40 * time.Millisecond}
	for i, w := range want {
		if got := a.Backoff(); got != w {
			t.Errorf("Backoff() #%d = %s, want %s", i+1, got, w)
		}
	}
}

func TestRelax_BoundedByFloor(t *testing.T) {
	a := New(testConfig())
	a.Backoff()
	a.Backoff()

	if got := a.Relax(); got != 20*time.Millisecond {
		t.Errorf("Relax() = %s, want 20ms", got)
	}
	if got := a.Relax(); got != 10*time.Millisecond {
		t.Errorf("Relax() = %s, want 10ms", got)
	}
	if got := a.Relax(); got != 10*time.Millisecond {
		t.Errorf("Relax() = %s, want floor 10ms", got)
	}
}

func TestRelax_WaitsForStreak(t *testing.T) {
	cfg := testConfig()
	cfg.RelaxAfter = 3
	a := New(cfg)
	a.Backoff() // 20ms

	a.Relax()
	a.Relax()
	if got := a.Interval(); got != 20*time.Millisecond {
		t.Fatalf("Interval() after 2 successes = %s, want 20ms", got)
	}
	a.Relax()
	if got := a.Interval(); got != 10*time.Millisecond {
		t.Errorf("Interval() after 3 successes = %s, want 10ms", got)
	}
}

func TestBackoff_ResetsStreak(t *testing.T) {
	cfg := testConfig()
	cfg.RelaxAfter = 2
	a := New(cfg)
	a.Backoff() // 20ms
	a.Relax()
	a.Backoff() // 40ms, streak cleared
	a.Relax()
	if got := a.Interval(); got != 40*time.Millisecond {
		t.Errorf("Interval() = %s, want 40ms (streak should restart after backoff)", got)
	}
}

func TestReset(t *testing.T) {
	a := New(testConfig())
	a.Backoff()
	a.Reset()
	if got := a.Interval(); got != 10*time.Millisecond {
		t.Errorf("Interval() after Reset = %s, want 10ms", got)
	}
}

func TestWait_EnforcesInterval(t *testing.T) {
	cfg := testConfig()
	cfg.Floor = 30 * time.Millisecond
	cfg.Ceiling = 60 * time.Millisecond
	a := New(cfg)
	ctx := context.Background()

	if err := a.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := a.Wait(ctx); err != nil {
			t.Fatalf("Wait() error = %v", err)
		}
	}
	// Three gated calls at 30ms each, with slack for timer granularity.
	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("three waits took %s, want >= ~90ms", elapsed)
	}
}

func TestWait_ConcurrentCallersSerialize(t *testing.T) {
	cfg := testConfig()
	cfg.Floor = 20 * time.Millisecond
	a := New(cfg)
	ctx := context.Background()
	_ = a.Wait(ctx)

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.Wait(ctx); err != nil {
				t.Errorf("Wait() error = %v", err)
				return
			}
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	first, last := times[0], times[0]
	for _, ts := range times {
		if ts.Before(first) {
			first = ts
		}
		if ts.After(last) {
			last = ts
		}
	}
	// Four callers behind a 20ms gate span at least three intervals.
	if span := last.Sub(first); span < 50*time.Millisecond {
		t.Errorf("concurrent waits spanned %s, want >= ~60ms", span)
	}
}

func TestWait_ContextCanceled(t *testing.T) {
	cfg := testConfig()
	cfg.Floor = time.Second
	cfg.Ceiling = time.Second
	a := New(cfg)
	_ = a.Wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := a.Wait(ctx); err == nil {
		t.Error("Wait() with canceled context should fail")
	}
}
