// Package migrations embeds the SQL schema files applied by db.Migrate.
package migrations

import "embed"

// FS holds every NNN_description.sql file in this directory.
//
//go:embed *.sql
var FS embed.FS
