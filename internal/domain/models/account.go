package models

import (
	"time"
)

type Account struct {
	ID             int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Email          string
	PassHash       []byte
	IsActivated    bool
	ActivationLink string
}

// Payload builds the public projection of the account that is embedded in
// tokens and returned to callers. PassHash and ActivationLink never leave
// the storage layer through it.
func (a Account) Payload() TokenPayload {
	return TokenPayload{
		ID:          a.ID,
		Email:       a.Email,
		IsActivated: a.IsActivated,
	}
}
