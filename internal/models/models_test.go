package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTokenSet(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)

	t.Run("NeedsRefresh", func(t *testing.T) {
		tc := []struct {
			name      string
			expiresIn time.Duration
			want      bool
		}{
			{name: "well before window", expiresIn: 10 * time.Minute, want: false},
			{name: "just outside window", expiresIn: 61 * time.Second, want: false},
			{name: "exactly at window edge", expiresIn: 60 * time.Second, want: true},
			{name: "inside window", expiresIn: 30 * time.Second, want: true},
			{name: "already expired", expiresIn: -time.Minute, want: true},
		}

		for _, tt := range tc {
			t.Run(tt.name, func(t *testing.T) {
				tokens := &TokenSet{AccessToken: "a", ExpiresAt: now.Add(tt.expiresIn).UnixMilli()}
				if got := tokens.NeedsRefresh(now, time.Minute); got != tt.want {
					t.Errorf("NeedsRefresh() = %v, want %v", got, tt.want)
				}
			})
		}
	})

	t.Run("Valid", func(t *testing.T) {
		var missing *TokenSet
		if missing.Valid(now) {
			t.Error("nil token set should not be valid")
		}

		expired := &TokenSet{AccessToken: "a", ExpiresAt: now.UnixMilli()}
		if expired.Valid(now) {
			t.Error("token expiring exactly now should not be valid")
		}

		fresh := &TokenSet{AccessToken: "a", ExpiresAt: now.Add(time.Second).UnixMilli()}
		if !fresh.Valid(now) {
			t.Error("token expiring in the future should be valid")
		}
	})

	t.Run("JSON Shape", func(t *testing.T) {
		data, err := json.Marshal(TokenSet{AccessToken: "a", RefreshToken: "r", ExpiresAt: 42, TokenType: "Bearer", Scope: "s"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		want := `{"access_token":"a","refresh_token":"r","expires_at":42,"token_type":"Bearer","scope":"s"}`
		if string(data) != want {
			t.Errorf("expected %s, got %s", want, data)
		}

		data, err = json.Marshal(Credentials{ClientID: "id", ClientSecret: "secret"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if string(data) != `{"clientId":"id","clientSecret":"secret"}` {
			t.Errorf("unexpected credentials shape %s", data)
		}
	})
}
