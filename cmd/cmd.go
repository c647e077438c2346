// submodule cmd contains command definitions
package main

import (
	"fmt"
	"time"

	"github.com/desertthunder/fmbridge/internal/models"
	"github.com/urfave/cli/v3"
)

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, json, csv, markdown)",
		Value:   "text",
	}
}

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Write output to a file instead of stdout",
	}
}

// stubFlags adds one --monarch-<kind> flag per kind for replaying saved source documents.
func stubFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(models.AllKinds))
	for _, kind := range models.AllKinds {
		flags = append(flags, &cli.StringFlag{
			Name:  "monarch-" + kind.String(),
			Usage: fmt.Sprintf("Read Monarch %s from a JSON file instead of the API", kind),
		})
	}
	return flags
}

// syncCommand mirrors Monarch records into Firefly.
func syncCommand(r *Runner) *cli.Command {
	flags := []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "kinds",
			Aliases: []string{"k"},
			Usage:   "Kinds to sync (accounts, categories, tags, transactions); defaults to sync.kinds",
		},
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "Translate records and report what would be created without creating anything",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"w"},
			Usage:   "Concurrent creation requests; defaults to sync.workers",
		},
		&cli.BoolFlag{
			Name:  "no-history",
			Usage: "Do not record the run in the history database",
		},
		formatFlag(),
		outputFlag(),
	}

	return &cli.Command{
		Name:   "sync",
		Usage:  "Mirror Monarch records into Firefly III",
		Flags:  append(flags, stubFlags()...),
		Action: r.Sync,
	}
}

// historyCommand inspects recorded sync runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show recorded sync runs",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"l"},
				Usage:   "Maximum number of runs to show",
				Value:   20,
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only show runs with this status (running, success, partial, failed)",
			},
			formatFlag(),
		},
		Action: r.History,
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show one sync run",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     []cli.Flag{formatFlag()},
				Action:    r.HistoryShow,
			},
			{
				Name:      "delete",
				Usage:     "Remove a sync run from the history",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.HistoryDelete,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write credentials to the configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "firefly-host",
						Usage: "Firefly III base URL",
					},
					&cli.StringFlag{
						Name:  "firefly-token",
						Usage: "Firefly III personal access token",
					},
					&cli.StringFlag{
						Name:  "monarch-token",
						Usage: "Monarch session token",
					},
					&cli.StringFlag{
						Name:  "from-curl",
						Usage: "cURL command of a Monarch web request (DevTools: Copy as cURL)",
					},
					&cli.StringFlag{
						Name:  "curl-file",
						Usage: "Path to a file containing the cURL command",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize the history database and run migrations",
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage authentication",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Verify the Firefly III token and the Monarch session",
				Action: r.AuthStatus,
			},
			{
				Name:  "login",
				Usage: "Authorize fmbridge with a Firefly III OAuth client and save the token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "client-id",
						Usage: "OAuth client id; defaults to firefly.client_id",
					},
					&cli.StringFlag{
						Name:  "client-secret",
						Usage: "OAuth client secret; defaults to firefly.client_secret (empty for PKCE-only clients)",
					},
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Callback listen address; defaults to firefly.callback_addr",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser authorization",
						Value: 2 * time.Minute,
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the authorization URL without opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:  "token",
				Usage: "Open the Firefly III page for creating a personal access token",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the URL without opening a browser",
					},
				},
				Action: r.AuthToken,
			},
		},
	}
}

// fireflyCommand inspects the target ledger.
func fireflyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "firefly",
		Aliases: []string{"ff"},
		Usage:   "Firefly III operations",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List Firefly records of a kind with their Monarch ids",
				Arguments: []cli.Argument{&cli.StringArg{Name: "kind"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "mirrored",
						Usage: "Only show records created from Monarch",
					},
					formatFlag(),
					outputFlag(),
				},
				Action: r.FireflyList,
			},
		},
	}
}

// monarchCommand reads the source service.
func monarchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "monarch",
		Usage: "Monarch operations",
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "Print the raw Monarch document of a kind",
				Arguments: []cli.Argument{&cli.StringArg{Name: "kind"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					outputFlag(),
				},
				Action: r.MonarchFetch,
			},
			{
				Name:  "snapshot",
				Usage: "Save every Monarch document to a directory for offline replay",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Output directory (default: monarch_snapshot_<epoch>)",
					},
					&cli.StringSliceFlag{
						Name:    "kinds",
						Aliases: []string{"k"},
						Usage:   "Kinds to save; defaults to all",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent fetches",
						Value: 2,
					},
				},
				Action: r.MonarchSnapshot,
			},
		},
	}
}

// apiCommand handles direct Firefly API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct Firefly III API calls",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET to the Firefly API, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "dump",
				Usage: "Dump the instance information and the first page of every synced collection",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.StringFlag{
						Name:  "save",
						Usage: "Also save the dump to this file",
					},
				},
				Action: r.APIDump,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command for an interactive sync.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive TUI for a sync",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "dry-run",
				Aliases: []string{"n"},
				Usage:   "Start with dry run enabled",
			},
		},
		Action: r.TUI,
	}
}
