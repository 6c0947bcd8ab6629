// Package migrations embeds the SQL schema for the postgres appointment store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
