package shared

import (
	"strings"
	"testing"
)

func TestBrowserCommand(t *testing.T) {
	original := getRuntime
	t.Cleanup(func() { getRuntime = original })

	authURL := "https://accounts.spotify.com/authorize?client_id=abc&response_type=code"

	tc := []struct {
		platform string
		want     string
	}{
		{platform: "darwin", want: "open"},
		{platform: "linux", want: "xdg-open"},
		{platform: "windows", want: "rundll32"},
	}

	for _, tt := range tc {
		t.Run(tt.platform, func(t *testing.T) {
			getRuntime = func() string { return tt.platform }

			cmd, err := browserCommand(authURL)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.HasSuffix(cmd.Path, tt.want) && cmd.Args[0] != tt.want {
				t.Errorf("expected %s, got %v", tt.want, cmd.Args)
			}
			if cmd.Args[len(cmd.Args)-1] != authURL {
				t.Errorf("expected URL passed intact as last argument, got %v", cmd.Args)
			}
		})
	}

	t.Run("unsupported platform", func(t *testing.T) {
		getRuntime = func() string { return "plan9" }

		if err := OpenBrowser(authURL); err == nil {
			t.Error("expected error for unsupported platform")
		}
	})
}
