// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

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

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Usage: "Page number",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Items per page",
			Value: 10,
		},
	}
}

// setupCommand handles setup operations for database, configuration and credentials.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write a config.toml with default settings",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Path of the config file to create",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "curl",
				Usage: "Import a bearer token and cookies from a browser request",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "curl",
						Usage: "cURL command from browser DevTools (Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to .sh file containing cURL command",
					},
				},
				Action: r.SetupCurl,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the StreamTube session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Sources: cli.EnvVars("STX_PASSWORD")},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "signup",
				Usage: "Create an account and sign in",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Required: true},
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Required: true},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Sources: cli.EnvVars("STX_PASSWORD")},
					&cli.StringFlag{Name: "name", Usage: "Full name"},
				},
				Action: r.AuthSignup,
			},
			{
				Name:   "logout",
				Usage:  "End the session and clear stored credentials",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the stored credential and check it against the API",
				Flags:  jsonFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Renew the access token using the refresh cookie",
				Action: r.AuthRefresh,
			},
			{
				Name:  "browser",
				Usage: "Sign in through the web app and receive the token on a local callback",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the callback",
						Value: defaultSignInTimeout,
					},
				},
				Action: r.AuthBrowser,
			},
		},
	}
}

// apiCommand handles direct API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated API calls, prints raw JSON",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Direct GET relative to the API root",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Action:    r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Direct POST with JSON body",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "data",
						Aliases: []string{"d"},
						Usage:   "JSON body to send",
					},
				},
				Action: r.APIPost,
			},
			{
				Name:      "delete",
				Usage:     "Direct DELETE",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Action:    r.APIDelete,
			},
		},
	}
}

// videosCommand handles video browsing and management
func videosCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "videos",
		Aliases: []string{"v"},
		Usage:   "Browse and manage videos",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List or search published videos",
				Flags: append(append(jsonFlags(), pageFlags()...),
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Search titles and descriptions"},
					&cli.StringFlag{Name: "sort", Usage: "createdAt, views or duration", Value: "createdAt"},
				),
				Action: r.VideosList,
			},
			{
				Name:      "get",
				Usage:     "Show one video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     jsonFlags(),
				Action:    r.VideosGet,
			},
			{
				Name:      "like",
				Usage:     "Toggle a like on a video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.VideosLike,
			},
			{
				Name:      "upload",
				Usage:     "Upload a video file",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}},
					&cli.IntFlag{Name: "duration", Usage: "Duration in seconds"},
				},
				Action: r.VideosUpload,
			},
			{
				Name:      "delete",
				Usage:     "Delete one of your videos",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.VideosDelete,
			},
			{
				Name:      "comments",
				Usage:     "List comments on a video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     append(jsonFlags(), pageFlags()...),
				Action:    r.VideosComments,
			},
			{
				Name:      "comment",
				Usage:     "Comment on a video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}, &cli.StringArg{Name: "content"}},
				Action:    r.VideosComment,
			},
		},
	}
}

// channelCommand handles channels and subscriptions
func channelCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "channel",
		Usage: "Channels and subscriptions",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show a channel by username",
				Arguments: []cli.Argument{&cli.StringArg{Name: "username"}},
				Flags:     jsonFlags(),
				Action:    r.ChannelShow,
			},
			{
				Name:      "subscribe",
				Usage:     "Toggle a subscription to a channel",
				Arguments: []cli.Argument{&cli.StringArg{Name: "username"}},
				Action:    r.ChannelSubscribe,
			},
			{
				Name:   "subscriptions",
				Usage:  "List your subscriptions",
				Flags:  jsonFlags(),
				Action: r.ChannelSubscriptions,
			},
		},
	}
}

// libraryCommand handles watch history and watch later
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Watch history and watch later",
		Commands: []*cli.Command{
			{
				Name:   "history",
				Usage:  "Show watch history",
				Flags:  jsonFlags(),
				Action: r.LibraryHistory,
			},
			{
				Name:   "clear-history",
				Usage:  "Clear watch history",
				Action: r.LibraryClearHistory,
			},
			{
				Name:   "watch-later",
				Usage:  "Show the watch later list",
				Flags:  jsonFlags(),
				Action: r.LibraryWatchLater,
			},
			{
				Name:      "save",
				Usage:     "Toggle a video in watch later",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.LibrarySave,
			},
		},
	}
}

// notificationsCommand handles the notification feed
func notificationsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"notif"},
		Usage:   "Notification feed",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List notifications",
				Flags: append(jsonFlags(), &cli.BoolFlag{
					Name:  "unread",
					Usage: "Only unread notifications",
				}),
				Action: r.NotificationsList,
			},
			{
				Name:      "read",
				Usage:     "Mark a notification read, or all of them with --all",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "all", Aliases: []string{"a"}},
				},
				Action: r.NotificationsRead,
			},
		},
	}
}

// exportCommand handles bulk exports and library dumps
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export videos and library state",
		Commands: []*cli.Command{
			{
				Name:      "videos",
				Usage:     "Fetch videos concurrently and write them as a single export",
				ArgsUsage: "[video-id...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, markdown or text"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory"},
					&cli.StringFlag{Name: "title", Usage: "Export title"},
					&cli.StringFlag{Name: "query", Aliases: []string{"q"}, Usage: "Export search results instead of IDs"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum search results", Value: 20},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent workers"},
					&cli.FloatFlag{Name: "rate", Usage: "Requests per second"},
					&cli.BoolFlag{Name: "cache", Usage: "Cache fetched videos locally", Value: true},
				},
				Action: r.ExportVideos,
			},
			{
				Name:  "dump",
				Usage: "Fetch profile, history, watch later, subscriptions and notifications",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write the dump to a file instead of stdout",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.ExportDump,
			},
		},
	}
}

// cacheCommand handles opt-in video caching
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Cache videos locally",
		Commands: []*cli.Command{
			{
				Name:      "video",
				Usage:     "Fetch a video and store its metadata",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.CacheVideo,
			},
			{
				Name:  "list",
				Usage: "List cached videos",
				Flags: append(jsonFlags(),
					&cli.StringFlag{Name: "channel", Usage: "Filter by channel ID"},
					&cli.StringFlag{Name: "title", Usage: "Filter by title substring"},
					&cli.IntFlag{Name: "limit", Usage: "Maximum rows", Value: 50},
				),
				Action: r.CacheList,
			},
		},
	}
}

// serveCommand runs the local development API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the in-memory StreamTube API for local development",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default from [server])"},
			&cli.BoolFlag{Name: "seed", Usage: "Create a demo user and a few videos"},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive video browser",
		Action:  r.TUI,
	}
}
