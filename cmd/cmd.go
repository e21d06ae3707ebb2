// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

func categoryFlagDef() cli.Flag {
	return &cli.StringFlag{
		Name:    "category",
		Aliases: []string{"cat"},
		Usage:   "Filter by category (book, movie, podcast, speech, other)",
	}
}

func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print output",
		},
		&cli.BoolFlag{
			Name:  "markdown",
			Usage: "Output Markdown",
		},
	}
}

// setupCommand initializes the config file and local cache database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Initialize config file, database and run migrations",
		Flags:  []cli.Flag{configFlag()},
		Action: r.SetupDatabase,
	}
}

// authCommand handles account operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign out, and manage your account",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password"},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "register",
				Usage: "Create a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password"},
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Display name (optional)"},
				},
				Action: r.AuthRegister,
			},
			{
				Name:   "google",
				Usage:  "Sign in with Google",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthGoogle,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and revoke the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:  "whoami",
				Usage: "Show the signed-in account",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				},
				Action: r.AuthWhoami,
			},
			{
				Name:  "update",
				Usage: "Update profile fields",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Usage: "New display name"},
					&cli.StringFlag{Name: "email", Usage: "New email"},
				},
				Action: r.AuthUpdate,
			},
			{
				Name:  "reset",
				Usage: "Request or complete a password reset",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Usage: "Account email (request step)"},
					&cli.StringFlag{Name: "uid", Usage: "Reset uid from the email link"},
					&cli.StringFlag{Name: "token", Usage: "Reset token from the email link"},
					&cli.StringFlag{Name: "password", Usage: "New password (complete step)"},
				},
				Action: r.AuthReset,
			},
		},
	}
}

// titlesCommand handles the reading feed and title creation
func titlesCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "titles",
		Aliases: []string{"t"},
		Usage:   "Browse and add titles",
		Commands: []*cli.Command{
			{
				Name:   "next",
				Usage:  "Show the next unseen title",
				Flags:  append([]cli.Flag{categoryFlagDef()}, outputFlags()...),
				Action: r.TitlesNext,
			},
			{
				Name:   "back",
				Usage:  "Show the previously seen title",
				Flags:  append([]cli.Flag{categoryFlagDef()}, outputFlags()...),
				Action: r.TitlesBack,
			},
			{
				Name:   "random",
				Usage:  "Show any random title, ignoring the seen-window",
				Flags:  append([]cli.Flag{categoryFlagDef()}, outputFlags()...),
				Action: r.TitlesRandom,
			},
			{
				Name:   "count",
				Usage:  "Show how many titles exist per category",
				Flags:  append([]cli.Flag{categoryFlagDef()}, outputFlags()...),
				Action: r.TitlesCount,
			},
			{
				Name:  "show",
				Usage: "Show one title with all its recaps",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  outputFlags(),
				Action: r.TitlesShow,
			},
			{
				Name:  "add",
				Usage: "Add a new title",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Title name", Required: true},
					&cli.StringFlag{Name: "category", Usage: "Category (book, movie, podcast, speech, other)", Required: true},
					&cli.StringFlag{Name: "author", Aliases: []string{"a"}, Usage: "Author or creator (optional)"},
				},
				Action: r.TitlesAdd,
			},
			{
				Name:   "restart",
				Usage:  "Forget the seen-window and start the feed over",
				Action: r.TitlesRestart,
			},
		},
	}
}

// recapsCommand handles posting and voting on recaps
func recapsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "recaps",
		Aliases: []string{"r"},
		Usage:   "Post, edit and vote on recaps",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Post a recap on a title",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "title", Aliases: []string{"t"}, Usage: "Title id", Required: true},
					&cli.StringFlag{Name: "text", Usage: "Recap text", Required: true},
				},
				Action: r.RecapsAdd,
			},
			{
				Name:  "edit",
				Usage: "Edit one of your recaps",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Usage: "Recap id", Required: true},
					&cli.StringFlag{Name: "text", Usage: "Replacement text", Required: true},
				},
				Action: r.RecapsEdit,
			},
			{
				Name:  "delete",
				Usage: "Delete one of your recaps",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Usage: "Recap id", Required: true},
				},
				Action: r.RecapsDelete,
			},
			{
				Name:  "vote",
				Usage: "Upvote, downvote, or clear your vote on a recap",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "id", Usage: "Recap id", Required: true},
					&cli.BoolFlag{Name: "up", Usage: "Cast an upvote"},
					&cli.BoolFlag{Name: "down", Usage: "Cast a downvote"},
					&cli.BoolFlag{Name: "clear", Usage: "Remove your vote"},
				},
				Action: r.RecapsVote,
			},
		},
	}
}

// cacheCommand handles the local offline cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local title cache",
		Commands: []*cli.Command{
			{
				Name:  "warm",
				Usage: "Bulk-fetch titles into the cache for offline reading",
				Flags: []cli.Flag{
					categoryFlagDef(),
					&cli.IntFlag{Name: "count", Usage: "Titles to fetch", Value: 25},
					&cli.FloatFlag{Name: "rate", Usage: "Requests per second", Value: 2.0},
				},
				Action: r.CacheWarm,
			},
			{
				Name:  "list",
				Usage: "List cached titles",
				Flags: append([]cli.Flag{categoryFlagDef()},
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output"},
				),
				Action: r.CacheList,
			},
			{
				Name:  "show",
				Usage: "Show a cached title without touching the network",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "id"},
				},
				Flags:  outputFlags(),
				Action: r.CacheShow,
			},
			{
				Name:   "export",
				Usage:  "Export cached titles as CSV",
				Flags:  []cli.Flag{categoryFlagDef()},
				Action: r.CacheExport,
			},
			{
				Name:   "clear",
				Usage:  "Empty the cache",
				Action: r.CacheClear,
			},
		},
	}
}

// tuiCommand launches the interactive feed
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive title feed",
		Flags:  []cli.Flag{categoryFlagDef()},
		Action: r.TUI,
	}
}
