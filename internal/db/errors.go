package db

import "errors"

var (
	// ErrKeyNotFound is returned for a missing item hash or cache entry.
	ErrKeyNotFound = errors.New("db: key not found")
	// ErrIndexNotFound is returned when a catalog FT index has not been created.
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	// ErrSearchUnavailable means the server has no query engine (FT.*) loaded.
	ErrSearchUnavailable = errors.New("db: search commands unavailable")
)

// Command names recorded in Error.Op.
const (
	OpCreateIndex = "FT.CREATE"
	OpDropIndex   = "FT.DROPINDEX"
	OpIndexInfo   = "FT.INFO"
	OpIndexList   = "FT._LIST"
	OpSearch      = "FT.SEARCH"
	OpHGetAll     = "HGETALL"
	OpHSet        = "HSET"
	OpExists      = "EXISTS"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error records the failing command alongside the server error.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
