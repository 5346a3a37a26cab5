// Package migrations holds the schema of the run ledger.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
