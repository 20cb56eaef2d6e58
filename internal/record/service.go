package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-auth-go/internal/record/entity"
	"github.com/ovaphlow/pitchfork/service-auth-go/internal/record/repo"
	"github.com/ovaphlow/pitchfork/service-auth-go/pkg/utilities"
)

// sentinel errors for common failure modes
var (
	ErrNotFound        = errors.New("record not found")
	ErrVersionConflict = errors.New("version conflict")
)

const storeTimeout = 5 * time.Second

// Service encapsulates record CRUD on top of the repo. Identity and role
// checks happen upstream in the auth middleware; this layer only enforces
// existence and optimistic-locking versions.
type Service struct {
	repo *repo.RecordRepo
}

func NewService(db *sqlx.DB, r *repo.RecordRepo) *Service {
	if r == nil {
		r = repo.NewRecordRepo(db)
	}
	return &Service{repo: r}
}

// List returns records by category (optional) with pagination defaults.
func (s *Service) List(ctx context.Context, category string, limit, offset int) ([]*entity.Record, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	return s.repo.List(ctx, category, limit, offset)
}

// Get returns a record by id.
func (s *Service) Get(ctx context.Context, id string) (*entity.Record, error) {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// Create stores a new record owned by ownerID, assigning a snowflake id and
// version 1.
func (s *Service) Create(ctx context.Context, ownerID, category string, detail json.RawMessage) (*entity.Record, error) {
	now := time.Now().UTC()
	if len(detail) == 0 {
		detail = json.RawMessage("{}")
	}
	rec := &entity.Record{
		ID:        utilities.NewSnowflakeID(),
		Category:  category,
		OwnerID:   ownerID,
		Detail:    detail,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return rec, nil
}

// Update replaces category/detail using optimistic locking on version.
func (s *Service) Update(ctx context.Context, id, category string, detail json.RawMessage) (*entity.Record, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	expected := existing.Version
	existing.Category = category
	if len(detail) > 0 {
		existing.Detail = detail
	}
	existing.Version = expected + 1
	existing.UpdatedAt = time.Now().UTC()

	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	rows, err := s.repo.Update(ctx, existing, expected)
	if err != nil {
		return nil, fmt.Errorf("update record: %w", err)
	}
	if rows == 0 {
		// the row existed a moment ago, so 0 rows means the version moved
		return nil, ErrVersionConflict
	}
	return existing, nil
}

// Delete removes a record by id.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	rows, err := s.repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
