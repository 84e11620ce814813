package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotx/internal/auth"
	"github.com/desertthunder/spotx/internal/models"
	"github.com/desertthunder/spotx/internal/repositories"
	"github.com/desertthunder/spotx/internal/services"
	"github.com/desertthunder/spotx/internal/shared"
	"github.com/desertthunder/spotx/internal/ui"
	"github.com/urfave/cli/v3"
)

// EventStore records and lists security events.
type EventStore interface {
	auth.EventRecorder
	List(limit int) ([]*models.SecurityEvent, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session and the Spotify client are built on first use, so commands like setup never touch the store.
type Runner struct {
	config     *shared.Config
	configPath string
	auth       *auth.Manager
	spotify    *services.SpotifyClient
	events     EventStore
	store      models.KeyValueStore
	prompter   auth.Prompter
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	ephemeral  bool
	noBrowser  bool
	closers    []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Auth       *auth.Manager
	Spotify    *services.SpotifyClient
	Events     EventStore
	Store      models.KeyValueStore // overrides the configured backend
	Prompter   auth.Prompter
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Ephemeral  bool // keep the session in memory only
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Prompter == nil {
		opts.Prompter = &ui.Prompter{
			RedirectURI: opts.Config.Spotify.RedirectURI,
			Accessible:  os.Getenv("ACCESSIBLE") != "",
		}
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		auth:       opts.Auth,
		spotify:    opts.Spotify,
		events:     opts.Events,
		store:      opts.Store,
		prompter:   opts.Prompter,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		ephemeral:  opts.Ephemeral,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, playerCommand, playlistsCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// session returns the auth manager, opening the configured store the first time.
func (r *Runner) session() (*auth.Manager, error) {
	if r.auth != nil {
		return r.auth, nil
	}

	store, err := r.openStore()
	if err != nil {
		return nil, err
	}

	opts := auth.ManagerOpts{
		Store:      store,
		Config:     r.config,
		Prompter:   r.prompter,
		Logger:     shared.WithLogger(r.logger, "component", "auth"),
		HTTPClient: r.httpClient,
	}
	if !r.noBrowser {
		opts.OpenBrowser = shared.OpenBrowser
	}
	if events := r.eventStore(); events != nil {
		opts.Events = events
	}

	manager, err := auth.NewManager(opts)
	if err != nil {
		return nil, err
	}
	r.auth = manager
	return manager, nil
}

func (r *Runner) openStore() (models.KeyValueStore, error) {
	switch {
	case r.store != nil:
		return r.store, nil
	case r.ephemeral:
		r.logger.Debug("using in-memory session store")
		r.store = repositories.NewMemoryStore()
		return r.store, nil
	}

	r.logger.Debug("opening session store", "backend", r.config.Storage.Backend)
	store, closer, err := repositories.NewStore(r.config.Storage)
	if err != nil {
		return nil, err
	}
	r.closers = append(r.closers, closer)
	r.store = store
	return store, nil
}

// eventStore opens the security event log in the sqlite database. Failure only disables event history.
func (r *Runner) eventStore() EventStore {
	if r.events != nil || r.ephemeral {
		return r.events
	}

	db, err := shared.OpenMigrated(shared.ExpandPath(r.config.Storage.Path))
	if err != nil {
		r.logger.Warn("security event log unavailable", "err", err)
		return nil
	}
	r.closers = append(r.closers, db.Close)
	r.events = repositories.NewEventRepository(db)
	return r.events
}

// player returns the Spotify client, building it on the session the first time.
func (r *Runner) player() (*services.SpotifyClient, error) {
	if r.spotify != nil {
		return r.spotify, nil
	}

	manager, err := r.session()
	if err != nil {
		return nil, err
	}

	client, err := services.NewSpotifyClient(services.SpotifyClientOpts{
		Tokens:  manager,
		BaseURL: r.config.Spotify.APIURL,
		Config:  r.config.API,
		Logger:  shared.WithLogger(r.logger, "component", "spotify"),
	})
	if err != nil {
		return nil, err
	}
	r.spotify = client
	return client, nil
}

// Close releases the store and database handles opened by the runner.
func (r *Runner) Close() error {
	var firstErr error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.closers = nil
	return firstErr
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
