package models

import "time"

// User is the minimal identity record kept alongside entities so that share
// rows can be joined with who they were granted to
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
