// Package migrations carries the schema scripts compiled into the server
// binary.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
