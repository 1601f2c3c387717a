//go:build !sqlite3_cgo

package db

// Default build. The ncruces driver runs sqlite compiled to wasm, so the
// binary builds and cross-compiles without cgo.
import (
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

const (
	driverImpl = "ncruces/go-sqlite3"
	sqlDriver  = "sqlite3"
)
