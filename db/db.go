// Package db embeds the SQL migrations so the server binary can apply them
// on startup without shipping migration files alongside it.
package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS
