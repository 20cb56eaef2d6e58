package entity

import (
	"encoding/json"
	"time"
)

// Record is a generic stored document. The auth layer decides who may touch
// it; the record service itself has no business logic beyond existence and
// version checks.
type Record struct {
	ID        string          `db:"id" json:"id"`
	Category  string          `db:"category" json:"category"`
	OwnerID   string          `db:"owner_id" json:"owner_id"`
	Detail    json.RawMessage `db:"detail" json:"detail"`
	Version   int64           `db:"version" json:"version"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt time.Time       `db:"updated_at" json:"updated_at"`
}
