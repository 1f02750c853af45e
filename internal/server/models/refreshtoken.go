package models

import "time"

// RefreshToken is a server-side refresh token record. The ID is the bearer
// secret handed to the client.
type RefreshToken struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiredAt time.Time `bson:"expired_at"`
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiredAt)
}
