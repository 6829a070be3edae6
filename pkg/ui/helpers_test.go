package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/opscost/pkg/engine"
)

func TestFormatTimeRel(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "unknown"},
		{"future", now.Add(time.Hour), "now"},
		{"seconds", now.Add(-10 * time.Second), "now"},
		{"minutes", now.Add(-5 * time.Minute), "5m ago"},
		{"hours", now.Add(-3 * time.Hour), "3h ago"},
		{"days", now.Add(-2 * 24 * time.Hour), "2d ago"},
		{"weeks", now.Add(-14 * 24 * time.Hour), "2w ago"},
		{"months", now.Add(-65 * 24 * time.Hour), "2mo ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatTimeRel(tt.t); got != tt.want {
				t.Errorf("FormatTimeRel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatUpdatedAt(t *testing.T) {
	if got := formatUpdatedAt(nil); got != engine.Absent {
		t.Errorf("nil timestamp = %q, want %q", got, engine.Absent)
	}
	empty := ""
	if got := formatUpdatedAt(&empty); got != engine.Absent {
		t.Errorf("empty timestamp = %q, want %q", got, engine.Absent)
	}
	free := "last tuesday"
	if got := formatUpdatedAt(&free); got != free {
		t.Errorf("free-form timestamp = %q, want verbatim", got)
	}
	ts := time.Now().Add(-2 * time.Hour).UTC().Format(time.RFC3339)
	got := formatUpdatedAt(&ts)
	if !strings.HasPrefix(got, ts) || !strings.HasSuffix(got, "(2h ago)") {
		t.Errorf("RFC3339 timestamp = %q, want %q with relative suffix", got, ts)
	}
}

func TestBarCells(t *testing.T) {
	tests := []struct {
		percent float64
		width   int
		want    int
	}{
		{100, 20, 20},
		{120, 20, 20},
		{50, 20, 10},
		{0, 20, 0},
		{-5, 20, 0},
		{0.1, 20, 1},   // visible sliver
		{99.9, 20, 19}, // only the maximum fills the track
	}
	for _, tt := range tests {
		if got := barCells(tt.percent, tt.width); got != tt.want {
			t.Errorf("barCells(%v, %d) = %d, want %d", tt.percent, tt.width, got, tt.want)
		}
	}
}

func TestRenderBarWidth(t *testing.T) {
	theme := TestTheme()
	bar := RenderBar(50, 10, theme)
	if got := strings.Count(bar, "█") + strings.Count(bar, "░"); got != 10 {
		t.Errorf("RenderBar cells = %d, want 10", got)
	}
	if RenderBar(50, 0, theme) != "" {
		t.Error("zero-width bar should be empty")
	}
}

func TestRenderRankBadge(t *testing.T) {
	if got := RenderRankBadge(1, 3); !strings.Contains(got, "#1") {
		t.Errorf("RenderRankBadge(1, 3) = %q, want #1", got)
	}
	if got := RenderRankBadge(1, 0); !strings.Contains(got, "#?") {
		t.Errorf("RenderRankBadge(1, 0) = %q, want #?", got)
	}
}
