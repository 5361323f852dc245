package syncmigrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()

func init() {
	// Derive migration IDs from the file name of each registered migration.
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}
