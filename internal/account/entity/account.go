package entity

import (
	"time"

	"github.com/lib/pq"
)

// Account represents one principal in the `accounts` table. The password is
// stored only as a bcrypt hash; plaintext never reaches the repo.
type Account struct {
	ID           string         `db:"id" json:"id"`
	Email        string         `db:"email" json:"email"`
	Username     string         `db:"username" json:"username"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Roles        pq.StringArray `db:"roles" json:"roles"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at" json:"updated_at"`
}
