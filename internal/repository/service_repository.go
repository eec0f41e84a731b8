package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// FieldService mirrors the `field_services` table: a priced add-on offered
// by a field, independent of time slots.
type FieldService struct {
	ID         uint64
	FieldID    uint64
	Name       string
	PriceCents int64
	IsActive   bool
	CreatedAt  string
	UpdatedAt  string
}

// ErrServiceNotFound is returned when an add-on service lookup fails.
var ErrServiceNotFound = errors.New("service not found")

// FieldServiceRepo provides access to field add-on services.
type FieldServiceRepo struct {
	db *sql.DB
}

// NewFieldServiceRepo constructs a FieldServiceRepo with the given DB handle.
func NewFieldServiceRepo(db *sql.DB) *FieldServiceRepo { return &FieldServiceRepo{db: db} }

// Create inserts a new add-on service and reads the row back.
func (r *FieldServiceRepo) Create(ctx context.Context, s *FieldService) error {
	const qInsert = `INSERT INTO field_services (field_id, name, price_cents) VALUES (?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, s.FieldID, s.Name, s.PriceCents)
	if err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	const qSelect = `SELECT id, field_id, name, price_cents, is_active, created_at, updated_at
	                 FROM field_services WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, s.ID).Scan(
		&s.ID, &s.FieldID, &s.Name, &s.PriceCents, &s.IsActive, &s.CreatedAt, &s.UpdatedAt)
}

// ListByField returns the services of one field, optionally active only.
func (r *FieldServiceRepo) ListByField(ctx context.Context, fieldID uint64, activeOnly bool) ([]*FieldService, error) {
	q := `SELECT id, field_id, name, price_cents, is_active, created_at, updated_at
	      FROM field_services WHERE field_id = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, fieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*FieldService
	for rows.Next() {
		s := new(FieldService)
		if err := rows.Scan(&s.ID, &s.FieldID, &s.Name, &s.PriceCents, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetActiveByIDs returns active services keyed by id, restricted to the
// given field so a booking cannot attach another field's add-ons.  Passing
// an empty id list returns an empty map.
func (r *FieldServiceRepo) GetActiveByIDs(ctx context.Context, fieldID uint64, ids []uint64) (map[uint64]*FieldService, error) {
	out := make(map[uint64]*FieldService, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	q := `SELECT id, field_id, name, price_cents, is_active, created_at, updated_at
	      FROM field_services
	      WHERE field_id = ? AND is_active = 1 AND id IN (` + placeholders + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, fieldID)
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		s := new(FieldService)
		if err := rows.Scan(&s.ID, &s.FieldID, &s.Name, &s.PriceCents, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out[s.ID] = s
	}
	return out, rows.Err()
}

// UpdateByIDAndOwner updates name and price when the service's field belongs
// to the owner.
func (r *FieldServiceRepo) UpdateByIDAndOwner(ctx context.Context, id, ownerID uint64, name string, priceCents int64) error {
	const q = `UPDATE field_services fs
	           JOIN fields f ON f.id = fs.field_id
	           SET fs.name = ?, fs.price_cents = ?, fs.updated_at = CURRENT_TIMESTAMP
	           WHERE fs.id = ? AND f.owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, name, priceCents, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// RetireByIDAndOwner marks a service inactive; bookings that already include
// it are unaffected.
func (r *FieldServiceRepo) RetireByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	const q = `UPDATE field_services fs
	           JOIN fields f ON f.id = fs.field_id
	           SET fs.is_active = 0, fs.updated_at = CURRENT_TIMESTAMP
	           WHERE fs.id = ? AND f.owner_id = ?`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
