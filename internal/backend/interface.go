// Package backend opens the ledger store selected by configuration.
package backend

import "slices"

// Type names a ledger backend.
type Type string

const (
	Memory   Type = "memory"
	SQLite   Type = "sqlite"
	Postgres Type = "postgres"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	return slices.Contains(Types(), t)
}

// Types returns every supported backend.
func Types() []Type {
	return []Type{Memory, SQLite, Postgres}
}

// Config holds what each backend needs to open.
type Config struct {
	Type Type

	// Memory seeds from the JSON files in DataDir; missing files are fine.
	DataDir string

	SQLitePath string

	DatabaseURL string
}
