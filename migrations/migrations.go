// Package migrations embeds the SQL schema applied by the gorm store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
