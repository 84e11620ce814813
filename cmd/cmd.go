// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand writes the config file and prepares the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml and initialize the database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Session storage backend: sqlite, keyring or file",
			},
		},
		Action: r.Setup,
	}
}

// authCommand manages the Spotify session.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Connect, inspect and disconnect the Spotify session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize spotx with your Spotify account",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget stored credentials and tokens",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the session state without contacting Spotify",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "resume",
				Usage:  "Resume the stored session, refreshing tokens if needed",
				Action: r.AuthResume,
			},
			{
				Name:   "token",
				Usage:  "Print a valid access token",
				Action: r.AuthToken,
			},
			{
				Name:  "events",
				Usage: "List recorded security events",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of events to show",
						Value: 20,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthEvents,
			},
		},
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

// playerCommand controls playback.
func playerCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "player",
		Aliases: []string{"p"},
		Usage:   "Control Spotify playback",
		Commands: []*cli.Command{
			{
				Name:   "now",
				Usage:  "Show what is playing",
				Flags:  jsonFlags(),
				Action: r.PlayerNow,
			},
			{
				Name:   "state",
				Usage:  "Show the full playback state",
				Flags:  jsonFlags(),
				Action: r.PlayerState,
			},
			{
				Name:   "queue",
				Usage:  "Show the playback queue",
				Flags:  jsonFlags(),
				Action: r.PlayerQueue,
			},
			{
				Name:  "recent",
				Usage: "Show recently played tracks",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Number of tracks (1-50)",
						Value: 20,
					},
				}, jsonFlags()...),
				Action: r.PlayerRecent,
			},
			{
				Name:   "devices",
				Usage:  "List available devices",
				Flags:  jsonFlags(),
				Action: r.PlayerDevices,
			},
			{
				Name:  "play",
				Usage: "Resume playback, or play a track or playlist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "device",
						Usage: "Device ID to play on",
					},
					&cli.StringFlag{
						Name:  "track",
						Usage: "Track URI to play",
					},
					&cli.StringFlag{
						Name:  "context",
						Usage: "Playlist or album URI to play",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Start position within --context",
						Value: -1,
					},
				},
				Action: r.PlayerPlay,
			},
			{
				Name:   "pause",
				Usage:  "Pause playback",
				Action: r.PlayerPause,
			},
			{
				Name:   "toggle",
				Usage:  "Pause when playing, resume when paused",
				Action: r.PlayerToggle,
			},
			{
				Name:   "next",
				Usage:  "Skip to the next track",
				Action: r.PlayerNext,
			},
			{
				Name:    "previous",
				Aliases: []string{"prev"},
				Usage:   "Skip to the previous track",
				Action:  r.PlayerPrevious,
			},
			{
				Name:  "add",
				Usage: "Add a track to the queue",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "uri",
					},
				},
				Action: r.PlayerAdd,
			},
			{
				Name:  "shuffle",
				Usage: "Turn shuffle on or off, or flip it when no state is given",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "state",
					},
				},
				Action: r.PlayerShuffle,
			},
			{
				Name:  "repeat",
				Usage: "Set repeat to off, context or track, or cycle it when no mode is given",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "mode",
					},
				},
				Action: r.PlayerRepeat,
			},
			{
				Name:  "volume",
				Usage: "Set the volume (0-100)",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "percent",
					},
				},
				Action: r.PlayerVolume,
			},
			{
				Name:  "transfer",
				Usage: "Move playback to another device",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "device",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "play",
						Usage: "Start playing on the new device",
					},
				},
				Action: r.PlayerTransfer,
			},
		},
	}
}

// playlistsCommand lists the user's playlists.
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "playlists",
		Usage: "List your Spotify playlists",
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of playlists to return (1-50)",
				Value: 20,
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Index of the first playlist",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Follow pagination and list every playlist",
			},
		}, jsonFlags()...),
		Action: r.Playlists,
	}
}

// apiCommand makes authenticated calls to arbitrary Web API paths.
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated calls to the Spotify Web API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "GET a Web API path, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "put",
				Usage: "PUT with an optional JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body to send",
					},
				},
				Action: r.APIPut,
			},
			{
				Name:  "post",
				Usage: "POST with an optional JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body to send",
					},
				},
				Action: r.APIPost,
			},
		},
	}
}
