package main

import (
	"testing"
	"time"

	"github.com/facultyindex/facultyindex/internal/author"
	"github.com/facultyindex/facultyindex/internal/config"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short unchanged", "Widgets", 10, "Widgets"},
		{"exact length", "Widgets", 7, "Widgets"},
		{"truncated", "Widgets and Gadgets", 10, "Widgets..."},
		{"multibyte", "Ünïcödé Wídgets", 8, "Ünïcö..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := truncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("truncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestFormatHelpers(t *testing.T) {
	n := 42
	if got := formatOptInt(&n); got != "42" {
		t.Errorf("formatOptInt(42) = %q", got)
	}
	if got := formatOptInt(nil); got != "-" {
		t.Errorf("formatOptInt(nil) = %q", got)
	}
	if got := formatIDList(nil); got != "-" {
		t.Errorf("formatIDList(nil) = %q", got)
	}
	if got := formatIDList([]string{"1", "2"}); got != "1, 2" {
		t.Errorf("formatIDList() = %q", got)
	}
	if got := formatDuration(1500 * time.Millisecond); got != "1.5s" {
		t.Errorf("formatDuration() = %q", got)
	}
	if got := formatDuration(125 * time.Second); got != "2m 5s" {
		t.Errorf("formatDuration() = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := newLogger("debug", false); err != nil {
		t.Errorf("newLogger(debug) error = %v", err)
	}
	if _, err := newLogger("ignored", true); err != nil {
		t.Errorf("newLogger(verbose) error = %v", err)
	}
	if _, err := newLogger("chatty", false); err == nil {
		t.Error("newLogger(chatty) error = nil, want error")
	}
}

func TestResolverConfig(t *testing.T) {
	cfg := config.Default()
	rc := resolverConfig(cfg, true)
	if rc.Mode != author.Strict {
		t.Errorf("Mode = %v, want strict", rc.Mode)
	}
	if !rc.Refresh {
		t.Error("Refresh = false, want true")
	}
	if rc.SampleTitles != cfg.Resolver.SampleTitles || rc.BatchSize != cfg.Resolver.BatchSize {
		t.Errorf("resolverConfig() = %+v", rc)
	}

	cfg.Resolver.LooseMatch = true
	if rc := resolverConfig(cfg, false); rc.Mode != author.Loose {
		t.Errorf("Mode = %v, want loose", rc.Mode)
	}
}

func TestNewS2ClientUsesPacerConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Pacer.Floor = 10 * time.Millisecond
	cfg.Pacer.Ceiling = 20 * time.Millisecond

	c := newS2Client(cfg)
	if got := c.Pacer().Interval(); got != 10*time.Millisecond {
		t.Errorf("Pacer().Interval() = %v, want 10ms", got)
	}
}
