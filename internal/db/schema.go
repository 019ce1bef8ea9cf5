// Package db holds the schema and queries of the scraped event store.
package db

import _ "embed"

//go:embed schema.sql
var Schema string
