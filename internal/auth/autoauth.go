package auth

import (
	"context"
	"time"
)

// TryAutoAuthenticate resumes a stored session without prompting.
//
// It returns false straight away when credentials or tokens are missing. Otherwise it asks for a valid token up to
// the configured number of attempts, sleeping backoff_base*attempt between transient failures, and gives up at once
// on any failure that retrying cannot fix.
func (m *Manager) TryAutoAuthenticate(ctx context.Context) bool {
	if !m.HasStoredCredentials() || !m.HasStoredTokens() {
		m.logger.Debug("no stored session to resume")
		return false
	}

	attempts := m.settings.AutoAuthAttempts
	base := m.settings.BackoffBase.Duration

	for attempt := 1; attempt <= attempts; attempt++ {
		logger := m.logger.With("attempt", attempt, "max", attempts)

		token, err := m.GetValidAccessToken(ctx)
		if err == nil && token != "" {
			logger.Info("session resumed")
			return true
		}

		if !IsTransient(err) {
			logger.Warn("session cannot be resumed, re-authentication required", "err", err)
			return false
		}
		if attempt == attempts {
			logger.Warn("session resume failed", "err", err)
			break
		}

		delay := base * time.Duration(attempt)
		logger.Info("session resume failed, retrying", "err", err, "delay", delay)
		if err := m.sleep(ctx, delay); err != nil {
			logger.Warn("session resume cancelled", "err", err)
			return false
		}
	}
	return false
}
