package models

import "time"

// Otp is a one-time code issued to a user. Verified flips to true only in
// the password recovery flow, where the record then acts as a capability
// for the password change step.
type Otp struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	Code      string    `bson:"code"`
	Verified  bool      `bson:"verified"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Expired reports whether more than ttl has passed since creation.
func (o *Otp) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(o.CreatedAt) > ttl
}
