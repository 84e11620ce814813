package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/desertthunder/spotx/internal/models"
)

// Prompter collects credentials and the pasted redirect URL with huh forms.
type Prompter struct {
	RedirectURI string    // shown as the placeholder for the pasted URL
	Accessible  bool      // plain line-based prompts, for screen readers and pipes
	Input       io.Reader // defaults to stdin
	Output      io.Writer // defaults to stdout
}

// Credentials asks for the Spotify application's client id and secret. The secret is not echoed.
func (p *Prompter) Credentials(ctx context.Context) (*models.Credentials, error) {
	var creds models.Credentials

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Spotify application").
				Description("Create an app at https://developer.spotify.com/dashboard\nand add "+p.RedirectURI+" as a redirect URI."),
			huh.NewInput().
				Title("Client ID").
				Placeholder("Your Spotify app Client ID").
				Value(&creds.ClientID).
				Validate(required("client id")),
			huh.NewInput().
				Title("Client Secret").
				Placeholder("Your Spotify app Client Secret").
				EchoMode(huh.EchoModePassword).
				Value(&creds.ClientSecret).
				Validate(required("client secret")),
		),
	)

	if err := p.run(ctx, form); err != nil {
		return nil, err
	}
	return &creds, nil
}

// RedirectURL shows authURL and waits for the URL the browser lands on after authorizing.
func (p *Prompter) RedirectURL(ctx context.Context, authURL string) (string, error) {
	var pasted string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Authorize spotx").
				Description("Your browser should open the page below. After authorizing, it is redirected to a page\n"+
					"that will not load. Copy the entire URL from the address bar.\n\n"+authURL),
			huh.NewInput().
				Title("Redirect URL").
				Placeholder(p.RedirectURI+"?code=...").
				Value(&pasted).
				Validate(ValidateRedirect),
		),
	)

	if err := p.run(ctx, form); err != nil {
		return "", err
	}
	return strings.TrimSpace(pasted), nil
}

// run executes form under ctx, reporting the context error when it ended the form.
func (p *Prompter) run(ctx context.Context, form *huh.Form) error {
	form = form.WithAccessible(p.Accessible)
	if p.Input != nil {
		form = form.WithInput(p.Input)
	}
	if p.Output != nil {
		form = form.WithOutput(p.Output)
	}

	err := form.RunWithContext(ctx)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, huh.ErrUserAborted) {
		return fmt.Errorf("prompt cancelled: %w", err)
	}
	return err
}

func required(name string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", name)
		}
		return nil
	}
}

// ValidateRedirect rejects input that cannot be the redirect URL. Query contents are checked by the auth manager.
func ValidateRedirect(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("paste the full URL from the address bar")
	}

	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("that does not look like a URL")
	}
	if u.RawQuery == "" {
		return errors.New("the URL has no query string, copy the whole address")
	}
	return nil
}
