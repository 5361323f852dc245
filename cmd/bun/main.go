package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Black-And-White-Club/shuttle-sync/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"

	syncmigrations "github.com/Black-And-White-Club/shuttle-sync/app/modules/sync/infrastructure/repositories/migrations"
	teammatchmigrations "github.com/Black-And-White-Club/shuttle-sync/app/modules/teammatching/infrastructure/repositories/migrations"
)

// moduleMigrator pairs a module with the migrator that owns its tables.
type moduleMigrator struct {
	name     string
	migrator *migrate.Migrator
}

// Modules are listed in apply order; rollbacks walk the list backwards.
func newModuleMigrators(db *bun.DB) []moduleMigrator {
	modules := []struct {
		name       string
		migrations *migrate.Migrations
	}{
		{"sync", syncmigrations.Migrations},
		{"teammatching", teammatchmigrations.Migrations},
	}

	out := make([]moduleMigrator, 0, len(modules))
	for _, m := range modules {
		out = append(out, moduleMigrator{
			name: m.name,
			migrator: migrate.NewMigrator(db, m.migrations,
				migrate.WithTableName("bun_migrations_"+m.name),
				migrate.WithLocksTableName("bun_migration_locks_"+m.name),
			),
		})
	}
	return out
}

func main() {
	configFile := flag.String("config", "config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	modules := newModuleMigrators(db)
	river := riverMigrations{dsn: cfg.Postgres.DSN}

	cliApp := &cli.App{
		Name:  "bun",
		Usage: "shuttle-sync schema management",
		Commands: []*cli.Command{
			newMigrateCommand(modules),
			newRiverCommand(river),
			{
				Name:  "up",
				Usage: "apply River and module migrations",
				Action: func(c *cli.Context) error {
					if err := river.run(c.Context, rivermigrate.DirectionUp, 0); err != nil {
						return err
					}
					if err := eachModule(modules, false, initModule(c.Context)); err != nil {
						return err
					}
					return eachModule(modules, false, migrateModule(c.Context))
				},
			},
		},
	}

	if err := cliApp.Run(append([]string{os.Args[0]}, flag.Args()...)); err != nil {
		log.Fatal(err)
	}
}

func eachModule(modules []moduleMigrator, reverse bool, fn func(moduleMigrator) error) error {
	for i := range modules {
		m := modules[i]
		if reverse {
			m = modules[len(modules)-1-i]
		}
		if err := fn(m); err != nil {
			return fmt.Errorf("module %s: %w", m.name, err)
		}
	}
	return nil
}

func findModule(modules []moduleMigrator, name string) (*migrate.Migrator, error) {
	for _, m := range modules {
		if m.name == name {
			return m.migrator, nil
		}
	}
	names := make([]string, 0, len(modules))
	for _, m := range modules {
		names = append(names, m.name)
	}
	return nil, fmt.Errorf("unknown module %q (expected one of %s)", name, strings.Join(names, ", "))
}

func initModule(ctx context.Context) func(moduleMigrator) error {
	return func(m moduleMigrator) error {
		fmt.Printf("[%s] creating migration tables\n", m.name)
		return m.migrator.Init(ctx)
	}
}

func migrateModule(ctx context.Context) func(moduleMigrator) error {
	return func(m moduleMigrator) error {
		group, err := m.migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			fmt.Printf("[%s] up to date\n", m.name)
			return nil
		}
		fmt.Printf("[%s] migrated to %s\n", m.name, group)
		return nil
	}
}

func newMigrateCommand(modules []moduleMigrator) *cli.Command {
	create := func(sqlFiles bool) cli.ActionFunc {
		return func(c *cli.Context) error {
			migrator, err := findModule(modules, c.Args().First())
			if err != nil {
				return err
			}
			name := strings.Join(c.Args().Tail(), "_")

			var files []*migrate.MigrationFile
			if sqlFiles {
				files, err = migrator.CreateSQLMigrations(c.Context, name)
			} else {
				var mf *migrate.MigrationFile
				mf, err = migrator.CreateGoMigration(c.Context, name)
				files = append(files, mf)
			}
			if err != nil {
				return err
			}
			for _, mf := range files {
				fmt.Printf("[%s] created %s (%s)\n", c.Args().First(), mf.Name, mf.Path)
			}
			return nil
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "module schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: func(c *cli.Context) error {
					return eachModule(modules, false, initModule(c.Context))
				},
			},
			{
				Name:  "migrate",
				Usage: "apply pending migrations",
				Action: func(c *cli.Context) error {
					return eachModule(modules, false, migrateModule(c.Context))
				},
			},
			{
				Name:  "rollback",
				Usage: "roll back the last migration group of every module",
				Action: func(c *cli.Context) error {
					return eachModule(modules, true, func(m moduleMigrator) error {
						group, err := m.migrator.Rollback(c.Context)
						if err != nil {
							return err
						}
						if group.IsZero() {
							fmt.Printf("[%s] nothing to roll back\n", m.name)
							return nil
						}
						fmt.Printf("[%s] rolled back %s\n", m.name, group)
						return nil
					})
				},
			},
			{
				Name:      "create_go",
				Usage:     "create a Go migration",
				ArgsUsage: "<module> <name...>",
				Action:    create(false),
			},
			{
				Name:      "create_sql",
				Usage:     "create up and down SQL migrations",
				ArgsUsage: "<module> <name...>",
				Action:    create(true),
			},
			{
				Name:  "status",
				Usage: "print migration status",
				Action: func(c *cli.Context) error {
					return eachModule(modules, false, func(m moduleMigrator) error {
						ms, err := m.migrator.MigrationsWithStatus(c.Context)
						if err != nil {
							return err
						}
						fmt.Printf("[%s] applied: %s\n", m.name, ms.Applied())
						fmt.Printf("[%s] pending: %s\n", m.name, ms.Unapplied())
						return nil
					})
				},
			},
		},
	}
}

// riverMigrations applies River's own job tables, which live outside bun.
type riverMigrations struct {
	dsn string
}

func (r riverMigrations) run(ctx context.Context, direction rivermigrate.Direction, steps int) error {
	pool, err := pgxpool.New(ctx, r.dsn)
	if err != nil {
		return fmt.Errorf("failed to create pgx pool: %w", err)
	}
	defer pool.Close()

	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		return err
	}
	res, err := migrator.Migrate(ctx, direction, &rivermigrate.MigrateOpts{MaxSteps: steps})
	if err != nil {
		return err
	}
	if len(res.Versions) == 0 {
		fmt.Println("[river] up to date")
	}
	for _, v := range res.Versions {
		fmt.Printf("[river] %s version %d\n", direction, v.Version)
	}
	return nil
}

func newRiverCommand(r riverMigrations) *cli.Command {
	return &cli.Command{
		Name:  "river",
		Usage: "River queue migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "up",
				Usage: "apply River migrations",
				Action: func(c *cli.Context) error {
					return r.run(c.Context, rivermigrate.DirectionUp, 0)
				},
			},
			{
				Name:  "down",
				Usage: "roll back River migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of versions to roll back"},
				},
				Action: func(c *cli.Context) error {
					return r.run(c.Context, rivermigrate.DirectionDown, c.Int("steps"))
				},
			},
		},
	}
}
