// Package migrations contains the embedded SQL migrations for the journal.
package migrations

import "embed"

//go:embed journal/*.sql
var JournalFS embed.FS
