//go:build cgo && sqlite3_cgo

package db

// Opt-in cgo build. The mattn driver links the sqlite3 C library, which
// some platforms still want for loadable extensions.
import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	driverImpl = "mattn/go-sqlite3"
	sqlDriver  = "sqlite3"
)
