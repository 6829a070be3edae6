package ui

import (
	"testing"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

func TestTruncate_UTF8Safe(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		want     string
	}{
		{name: "zero max", input: "hello", maxWidth: 0, want: ""},
		{name: "fits", input: "hello", maxWidth: 10, want: "hello"},
		{name: "exact", input: "hello", maxWidth: 5, want: "hello"},
		{name: "ellipsis", input: "Device Two", maxWidth: 6, want: "Devic…"},
		{name: "wide runes", input: "日本語デバイス", maxWidth: 5, want: "日本…"},
		{name: "middle dot", input: "Device One · cpu", maxWidth: 12, want: "Device One …"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.input, tt.maxWidth)
			if got != tt.want {
				t.Fatalf("truncate(%q, %d) = %q; want %q", tt.input, tt.maxWidth, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("truncate output is not valid UTF-8: %q", got)
			}
			if w := runewidth.StringWidth(got); w > tt.maxWidth {
				t.Fatalf("truncate output is %d cells wide; max %d", w, tt.maxWidth)
			}
		})
	}
}

func TestFitWidth(t *testing.T) {
	tests := []struct {
		input string
		width int
		want  string
	}{
		{"abc", 6, "abc   "},
		{"abcdefgh", 6, "abcde…"},
		{"日本", 6, "日本  "},
		{"", 3, "   "},
	}
	for _, tt := range tests {
		got := fitWidth(tt.input, tt.width)
		if got != tt.want {
			t.Errorf("fitWidth(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.want)
		}
		if w := runewidth.StringWidth(got); w != tt.width {
			t.Errorf("fitWidth(%q, %d) is %d cells wide", tt.input, tt.width, w)
		}
	}
}
