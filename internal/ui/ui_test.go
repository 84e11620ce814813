package ui

import (
	"strings"
	"testing"
)

func TestValidateRedirect(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"full redirect", "http://127.0.0.1:8000/callback?code=AQD&state=abc", true},
		{"surrounding whitespace", "  http://127.0.0.1:8000/callback?error=access_denied \n", true},
		{"empty", "   ", false},
		{"bare code", "AQD79unik", false},
		{"no query", "http://127.0.0.1:8000/callback", false},
		{"no scheme", "127.0.0.1:8000/callback?code=x", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateRedirect(tc.input)
			if tc.ok && err != nil {
				t.Errorf("expected %q to be accepted, got %v", tc.input, err)
			}
			if !tc.ok && err == nil {
				t.Errorf("expected %q to be rejected", tc.input)
			}
		})
	}
}

func TestRequired(t *testing.T) {
	check := required("client id")

	if err := check("abc"); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	err := check(" ")
	if err == nil || !strings.Contains(err.Error(), "client id") {
		t.Errorf("expected required error naming the field, got %v", err)
	}
}

func TestPalette(t *testing.T) {
	p := NewPalette(Colors{Title: "#000000", OK: "#111111", Err: "#222222", Warn: "#333333", Help: "#444444"})

	for name, render := range map[string]func(string) string{
		"Title": p.Title, "OK": p.OK, "Err": p.Err, "Warn": p.Warn, "Help": p.Help,
	} {
		if got := render("hello"); !strings.Contains(got, "hello") {
			t.Errorf("%s dropped the text: %q", name, got)
		}
	}
}

func TestPaletteLines(t *testing.T) {
	p := NewPalette(Colors{})

	if got := p.Done("Paused"); !strings.Contains(got, "✓") || !strings.HasSuffix(got, " Paused") {
		t.Errorf("unexpected confirmation %q", got)
	}
	for _, level := range []StatusLevel{StatusBad, StatusDegraded, StatusGood} {
		if got := p.Level(level, "Connected"); !strings.Contains(got, "●") || !strings.HasSuffix(got, " Connected") {
			t.Errorf("unexpected status line %q for level %d", got, level)
		}
	}
}
