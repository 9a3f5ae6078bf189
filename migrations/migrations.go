// Package migrations embeds the SQL schema so binaries and tests apply the
// same files.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
