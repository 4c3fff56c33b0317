package domain

import "github.com/google/uuid"

// UserID uniquely identifies a user within the system.
// It wraps uuid.UUID to provide type safety at the domain layer.
type UserID uuid.UUID

// String renders the ID in the canonical UUID form.
func (id UserID) String() string { return uuid.UUID(id).String() }
