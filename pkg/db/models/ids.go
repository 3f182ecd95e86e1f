package models

import "github.com/google/uuid"

// ensureID assigns a v4 UUID when the primary key was left empty. IDs are
// generated client-side so the same models work against Postgres and SQLite.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
