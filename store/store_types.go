package store

import (
	"database/sql"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when no run exists for an ID
	ErrNotFound = errors.New("run not found in store")
	// ErrDuplicate rejects saving over an existing run. Sealed artifacts
	// are write-once
	ErrDuplicate = errors.New("run already stored")
)

// Summary is the listing row for a stored run, the full artifact is
// fetched per ID
type Summary struct {
	ID         string    `json:"id"`
	Nickname   string    `json:"nickname"`
	Strategy   string    `json:"strategy"`
	Status     string    `json:"status"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Store persists sealed runs in a local sqlite database
type Store struct {
	db *sql.DB
}
