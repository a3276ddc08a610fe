// Package migrations embeds the launcher's local cache schema.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
