package database

import "errors"

// ErrNotReady reports that the database did not answer a ping.
var ErrNotReady = errors.New("database not ready")
