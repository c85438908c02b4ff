// Package migrations embeds the PostgreSQL schema migrations applied by
// golang-migrate before GORM AutoMigrate takes over (see ../gorm.go).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
