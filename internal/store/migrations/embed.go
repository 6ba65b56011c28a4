// Package migrations embeds the SQL schema of popchat.db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
