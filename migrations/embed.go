// Package migrations embeds SQL migration files into the binary.
//
// This lets devpoold run migrations without the SQL files present on the
// filesystem; they are compiled into the executable.
package migrations

import (
	"embed"

	"github.com/devicelab/devpool-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	// Register embedded migrations with the database package.
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "." // files are at the root of the embedded FS
}
