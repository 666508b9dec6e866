// Package migrations embeds the Postgres-dialect schema shared by every store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
