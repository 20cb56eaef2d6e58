package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/record/entity"
)

// RecordRepo is the repository for records backed by PostgreSQL.
type RecordRepo struct {
	db *sqlx.DB
}

func NewRecordRepo(db *sqlx.DB) *RecordRepo { return &RecordRepo{db: db} }

// EnsureTable creates the records table and its index if not exists.
func (r *RecordRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS records (
  id varchar(32) PRIMARY KEY,
  category varchar(32) NOT NULL DEFAULT '',
  owner_id varchar(32) NOT NULL,
  detail JSONB NOT NULL DEFAULT '{}'::jsonb,
  version BIGINT NOT NULL DEFAULT 1,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_records_category ON records(category);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// List returns records filtered by category (optional) with pagination.
func (r *RecordRepo) List(ctx context.Context, category string, limit, offset int) ([]*entity.Record, error) {
	var out []*entity.Record
	if category != "" {
		const q = `SELECT id, category, owner_id, detail, version, created_at, updated_at
			FROM records WHERE category=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`
		if err := r.db.SelectContext(ctx, &out, q, category, limit, offset); err != nil {
			return nil, err
		}
		return out, nil
	}
	const q = `SELECT id, category, owner_id, detail, version, created_at, updated_at
		FROM records ORDER BY id DESC LIMIT $1 OFFSET $2`
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns a record or sql.ErrNoRows.
func (r *RecordRepo) GetByID(ctx context.Context, id string) (*entity.Record, error) {
	const q = `SELECT id, category, owner_id, detail, version, created_at, updated_at
		FROM records WHERE id=$1`
	var rec entity.Record
	if err := r.db.GetContext(ctx, &rec, q, id); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts a new record row.
func (r *RecordRepo) Create(ctx context.Context, rec *entity.Record) error {
	const q = `INSERT INTO records (id, category, owner_id, detail, version)
		VALUES ($1, $2, $3, $4, $5)`
	// JSONB param goes over as text; []byte would be sent as bytea
	_, err := r.db.ExecContext(ctx, q, rec.ID, rec.Category, rec.OwnerID, string(rec.Detail), rec.Version)
	return err
}

// Update replaces category/detail guarded by the expected version. Returns
// rows affected; 0 means the row is gone or the version moved.
func (r *RecordRepo) Update(ctx context.Context, rec *entity.Record, expectedVersion int64) (int64, error) {
	const q = `UPDATE records SET category=$2, detail=$3, version=$4, updated_at=NOW()
		WHERE id=$1 AND version=$5`
	res, err := r.db.ExecContext(ctx, q, rec.ID, rec.Category, string(rec.Detail), rec.Version, expectedVersion)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes a record by id and returns rows affected.
func (r *RecordRepo) Delete(ctx context.Context, id string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id=$1`, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
