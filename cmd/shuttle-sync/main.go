package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Black-And-White-Club/shuttle-sync/app"
	syncservice "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/application"
	syncdomain "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/domain"
	synctime "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/time_utils"
	"github.com/Black-And-White-Club/shuttle-sync/config"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cliApp := &cli.App{
		Name:  "shuttle-sync",
		Usage: "sync tournaments and competitions from the tournament API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the configuration file",
				EnvVars: []string{"CONFIG_FILE"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			discoverCommand(),
			syncCommand(),
			statsCommand(),
			jobsCommand(),
			watchCommand(),
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// withApp builds the application for one command and closes it afterwards.
func withApp(c *cli.Context, fn func(a *app.App) error) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a, err := app.NewApp(c.Context, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Close(closeCtx); err != nil {
			log.Printf("close: %v", err)
		}
	}()
	return fn(a)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the queue workers and the admin HTTP server",
		Action: func(c *cli.Context) error {
			cfg, err := config.LoadConfig(c.String("config"))
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			a, err := app.NewApp(c.Context, cfg)
			if err != nil {
				return err
			}
			// Start closes the app on shutdown.
			return a.Start(c.Context)
		},
	}
}

func discoverCommand() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "queue discovery of tournaments",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "since", Usage: `reference date, e.g. "2026-10-01" or "last monday"`},
			&cli.IntFlag{Name: "page-size", Usage: "tournaments per page"},
			&cli.StringFlag{Name: "search", Usage: "search term"},
		},
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app.App) error {
				req := syncservice.DiscoveryRequest{
					PageSize:   c.Int("page-size"),
					SearchTerm: c.String("search"),
				}
				if since := c.String("since"); since != "" {
					d, err := synctime.NewDateParser(a.Config.Location()).ParseDate(since, syncdomain.RealClock{})
					if err != nil {
						return err
					}
					req.RefDate = d
				}
				jobID, err := a.SyncModule.Service.QueueDiscovery(c.Context, req)
				if err != nil {
					return err
				}
				fmt.Println(jobID)
				return nil
			})
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "queue syncs",
		Subcommands: []*cli.Command{
			{
				Name:      "structure",
				Usage:     "queue a structure sync",
				ArgsUsage: "<subject-code>",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "event", Usage: "restrict to these event codes"},
					&cli.BoolFlag{Name: "root-only", Usage: "sync only the root entity"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("expected exactly one subject code", 2)
					}
					return withApp(c, func(a *app.App) error {
						jobID, err := a.SyncModule.Service.QueueStructureSync(c.Context, syncservice.StructureSyncRequest{
							SubjectCode:          c.Args().First(),
							EventCodes:           c.StringSlice("event"),
							IncludeSubComponents: !c.Bool("root-only"),
						})
						if err != nil {
							return err
						}
						fmt.Println(jobID)
						return nil
					})
				},
			},
			{
				Name:      "games",
				Usage:     "queue a result sync",
				ArgsUsage: "<subject-code>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "date", Usage: `only this day, e.g. "2026-10-11" or "yesterday"`},
					&cli.StringSliceFlag{Name: "match", Usage: "only these match codes"},
				},
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("expected exactly one subject code", 2)
					}
					return withApp(c, func(a *app.App) error {
						req := syncservice.GameSyncRequest{
							SubjectCode: c.Args().First(),
							MatchCodes:  c.StringSlice("match"),
						}
						if raw := c.String("date"); raw != "" {
							d, err := synctime.NewDateParser(a.Config.Location()).ParseDate(raw, syncdomain.RealClock{})
							if err != nil {
								return err
							}
							req.Date = &d
						}
						jobID, err := a.SyncModule.Service.QueueGameSync(c.Context, req)
						if err != nil {
							return err
						}
						fmt.Println(jobID)
						return nil
					})
				},
			},
		},
	}
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "print job counts per state",
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app.App) error {
				stats, err := a.SyncModule.Service.GetQueueStats(c.Context)
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}
}

func jobsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "list recent jobs",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Value: 20},
			&cli.StringFlag{Name: "state", Usage: "only jobs in this state"},
		},
		Action: func(c *cli.Context) error {
			var state *syncdomain.JobState
			if raw := c.String("state"); raw != "" {
				st, err := syncdomain.ParseJobState(raw)
				if err != nil {
					return cli.Exit(err.Error(), 2)
				}
				state = &st
			}
			return withApp(c, func(a *app.App) error {
				jobs, err := a.SyncModule.Service.GetRecentJobs(c.Context, c.Int("limit"), state)
				if err != nil {
					return err
				}
				for _, j := range jobs {
					fmt.Printf("%-50s %-16s %3d%%  %s\n", j.ID, j.State, j.Progress, j.UpdatedAt.Format(time.RFC3339))
				}
				return nil
			})
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "follow job events until interrupted",
		Action: func(c *cli.Context) error {
			return withApp(c, func(a *app.App) error {
				events, err := a.SyncModule.Service.SubscribeJobEvents(c.Context)
				if err != nil {
					return err
				}
				for ev := range events {
					line := fmt.Sprintf("%s %-50s %-16s %3d%%", ev.OccurredAt.Format(time.TimeOnly), ev.JobID, ev.State, ev.Progress)
					if ev.Error != "" {
						line += " " + ev.Error
					}
					fmt.Println(line)
				}
				return nil
			})
		},
	}
}
