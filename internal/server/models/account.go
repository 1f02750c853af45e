package models

import "time"

// Cart is the per-user shopping cart header. Items live elsewhere.
type Cart struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Wallet holds a user's balance in minor units of Currency.
type Wallet struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Balance   int64     `bson:"balance"`
	Currency  string    `bson:"currency"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}
