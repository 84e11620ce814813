package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/ui"
	"github.com/urfave/cli/v3"
)

// SessionStatus is the JSON form of auth status.
type SessionStatus struct {
	State          string     `json:"state"`
	Authenticated  bool       `json:"authenticated"`
	HasCredentials bool       `json:"has_credentials"`
	HasTokens      bool       `json:"has_tokens"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Expired        bool       `json:"expired"`
}

// AuthLogin runs the interactive authorization flow, bounded by the configured prompt timeout.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.noBrowser = cmd.Bool("no-browser")

	manager, err := r.session()
	if err != nil {
		return err
	}

	if timeout := r.config.Auth.PromptTimeout.Duration; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	r.logger.Info("starting Spotify authorization")
	if err := manager.Authenticate(ctx); err != nil {
		if errors.Is(err, shared.ErrTimeout) {
			return fmt.Errorf("%w: no redirect URL received within %s", err, r.config.Auth.PromptTimeout.Duration)
		}
		return err
	}

	r.writePlain("%s\n", ui.Styles.Done("Connected to Spotify"))
	if expiry, ok := manager.TokenExpiry(); ok {
		r.writePlain("Access token valid until %s\n", expiry.Local().Format(time.Kitchen))
	}
	return nil
}

// AuthLogout forgets credentials and tokens.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	if err := manager.Logout(); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.Done("Logged out"))
}

// AuthStatus reports the stored session without refreshing it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	status := SessionStatus{
		State:          manager.State().String(),
		Authenticated:  manager.IsAuthenticated(),
		HasCredentials: manager.HasStoredCredentials(),
		HasTokens:      manager.HasStoredTokens(),
	}
	if expiry, ok := manager.TokenExpiry(); ok {
		status.ExpiresAt = &expiry
		status.Expired = !manager.HasValidAccessToken()
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	r.writePlain("%s\n", ui.Styles.Title("Spotify session"))
	switch {
	case !status.HasCredentials:
		r.writePlain("%s\n", ui.Styles.Level(ui.StatusBad, "Not connected"))
		r.writePlain("%s\n", ui.Styles.Help("Run 'spotx auth login' to connect your Spotify account."))
	case !status.HasTokens:
		r.writePlain("%s\n", ui.Styles.Level(ui.StatusDegraded, "Session expired"))
		r.writePlain("%s\n", ui.Styles.Help("Run 'spotx auth login' to reconnect."))
	default:
		r.writePlain("%s\n", ui.Styles.Level(ui.StatusGood, "Connected"))
		if status.Expired {
			r.writePlain("Access token expired at %s, it is refreshed on next use\n", status.ExpiresAt.Local().Format(time.RFC1123))
		} else {
			r.writePlain("Access token valid until %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
		}
	}
	return nil
}

// AuthResume resumes the stored session non-interactively.
func (r *Runner) AuthResume(ctx context.Context, cmd *cli.Command) error {
	if err := r.resume(ctx); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.Styles.Done("Session resumed"))
}

// AuthToken prints a valid access token, refreshing it first when needed.
func (r *Runner) AuthToken(ctx context.Context, cmd *cli.Command) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	token, err := manager.GetValidAccessToken(ctx)
	if err != nil {
		return sessionError(manager, err)
	}
	return r.writePlain("%s\n", token)
}

// AuthEvents lists recorded security events, newest first.
func (r *Runner) AuthEvents(ctx context.Context, cmd *cli.Command) error {
	events := r.eventStore()
	if events == nil {
		return fmt.Errorf("%w: security event log is not available", shared.ErrStorage)
	}

	list, err := events.List(int(cmd.Int("limit")))
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrStorage, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(list, true)
	}

	if len(list) == 0 {
		return r.writePlain("No security events recorded\n")
	}
	for _, event := range list {
		r.writePlain("%s  %s  %s\n", event.CreatedAt.Local().Format(time.DateTime), ui.Styles.Err(event.Kind), event.Detail)
	}
	return nil
}

// resume makes sure the session has a usable token before a Web API call.
func (r *Runner) resume(ctx context.Context) error {
	manager, err := r.session()
	if err != nil {
		return err
	}

	if manager.TryAutoAuthenticate(ctx) {
		return nil
	}

	switch {
	case !manager.HasStoredCredentials():
		return fmt.Errorf("%w: run 'spotx auth login' to connect your Spotify account", shared.ErrNotAuthenticated)
	case !manager.HasStoredTokens():
		return fmt.Errorf("%w: session expired, run 'spotx auth login' to reconnect", shared.ErrNotAuthenticated)
	default:
		return fmt.Errorf("%w: could not reach Spotify to refresh the session, try again shortly", shared.ErrServiceUnavailable)
	}
}

// sessionError adds a reconnect hint to errors that need a new login.
func sessionError(manager *auth.Manager, err error) error {
	if auth.IsReauthRequired(err) || errors.Is(err, shared.ErrNotAuthenticated) {
		if manager.HasStoredCredentials() {
			return fmt.Errorf("%w (run 'spotx auth login' to reconnect)", err)
		}
		return fmt.Errorf("%w (run 'spotx auth login' to connect)", err)
	}
	return err
}
