package migrations

import "embed"

// FS contains the ClickHouse migrations for the moderation audit journal.
//
//go:embed *.sql
var FS embed.FS
