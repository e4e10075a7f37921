package models

import "github.com/google/uuid"

// User is the stable authenticated identity supplied by the identity
// provider. The engine trusts it completely.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
}
