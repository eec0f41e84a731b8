// Package repository contains data access logic separated from HTTP handlers
// and from the booking engine.  This file defines the Field and SubField
// records and repository methods for CRUD and lookup operations.  A Field is
// a venue owned by one account; its SubFields are the units customers book.
package repository

import (
	"context"
	"database/sql"
	"errors"
)

// Field mirrors the `fields` table.  Operating times are stored as minutes
// from midnight so that comparisons against the slot grid need no parsing.
type Field struct {
	ID        uint64
	OwnerID   uint64
	Name      string
	Address   string
	OpenMin   int
	CloseMin  int
	IsActive  bool
	CreatedAt string
	UpdatedAt string
}

// SubField mirrors the `sub_fields` table.  DefaultPriceCents applies to any
// slot not covered by a pricing rule.
type SubField struct {
	ID                uint64
	FieldID           uint64
	Name              string
	OpenMin           int
	CloseMin          int
	DefaultPriceCents int64
	IsActive          bool
	CreatedAt         string
	UpdatedAt         string
}

// ErrFieldNotFound is returned when a field lookup fails.
var ErrFieldNotFound = errors.New("field not found")

// ErrSubFieldNotFound is returned when a sub-field lookup fails or the
// sub-field has been retired.
var ErrSubFieldNotFound = errors.New("sub-field not found")

// FieldRepo provides methods to manage fields and their sub-fields.
type FieldRepo struct {
	db *sql.DB
}

// NewFieldRepo constructs a FieldRepo with the given DB handle.
func NewFieldRepo(db *sql.DB) *FieldRepo { return &FieldRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span several repositories.
func (r *FieldRepo) DB() *sql.DB { return r.db }

// CreateField inserts a new field and reads the row back so timestamp and
// default columns are populated on the returned record.
func (r *FieldRepo) CreateField(ctx context.Context, f *Field) error {
	const qInsert = `INSERT INTO fields (owner_id, name, address, open_min, close_min) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, f.OwnerID, f.Name, f.Address, f.OpenMin, f.CloseMin)
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
	f.ID = uint64(id)
	const qSelect = `SELECT id, owner_id, name, address, open_min, close_min, is_active, created_at, updated_at
	                 FROM fields WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, f.ID).Scan(
		&f.ID, &f.OwnerID, &f.Name, &f.Address, &f.OpenMin, &f.CloseMin, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
}

// GetFieldByID fetches a field regardless of owner.
func (r *FieldRepo) GetFieldByID(ctx context.Context, id uint64) (*Field, error) {
	const q = `SELECT id, owner_id, name, address, open_min, close_min, is_active, created_at, updated_at
	           FROM fields WHERE id = ?`
	var f Field
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&f.ID, &f.OwnerID, &f.Name, &f.Address, &f.OpenMin, &f.CloseMin, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	return &f, nil
}

// GetFieldByIDAndOwner fetches a field only if it belongs to the given owner.
// Used by owner endpoints to enforce resource ownership.
func (r *FieldRepo) GetFieldByIDAndOwner(ctx context.Context, id, ownerID uint64) (*Field, error) {
	const q = `SELECT id, owner_id, name, address, open_min, close_min, is_active, created_at, updated_at
	           FROM fields WHERE id = ? AND owner_id = ?`
	var f Field
	err := r.db.QueryRowContext(ctx, q, id, ownerID).Scan(
		&f.ID, &f.OwnerID, &f.Name, &f.Address, &f.OpenMin, &f.CloseMin, &f.IsActive, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	return &f, nil
}

// ListFieldsByOwner returns all fields for a specific owner ordered by id.
func (r *FieldRepo) ListFieldsByOwner(ctx context.Context, ownerID uint64) ([]*Field, error) {
	const q = `SELECT id, owner_id, name, address, open_min, close_min, is_active, created_at, updated_at
	           FROM fields WHERE owner_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Field
	for rows.Next() {
		f := new(Field)
		if err := rows.Scan(&f.ID, &f.OwnerID, &f.Name, &f.Address, &f.OpenMin, &f.CloseMin, &f.IsActive, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListActiveFields returns all active fields for public browsing.  Owner and
// timestamp columns are not selected.
func (r *FieldRepo) ListActiveFields(ctx context.Context) ([]*Field, error) {
	const q = `SELECT id, name, address, open_min, close_min FROM fields WHERE is_active = 1 ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Field
	for rows.Next() {
		f := &Field{IsActive: true}
		if err := rows.Scan(&f.ID, &f.Name, &f.Address, &f.OpenMin, &f.CloseMin); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// FieldSearchQuery filters the public field search.
type FieldSearchQuery struct {
	Name     string
	Address  string
	Page     int
	PageSize int
}

// SearchActiveFields returns active fields matching the query with a total
// count for pagination.
func (r *FieldRepo) SearchActiveFields(ctx context.Context, q FieldSearchQuery) ([]*Field, int, error) {
	where := ` WHERE is_active = 1`
	args := []interface{}{}
	if q.Name != "" {
		where += ` AND name LIKE ?`
		args = append(args, "%"+q.Name+"%")
	}
	if q.Address != "" {
		where += ` AND address LIKE ?`
		args = append(args, "%"+q.Address+"%")
	}
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fields`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	offset := (q.Page - 1) * q.PageSize
	listArgs := append(args, q.PageSize, offset)
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, address, open_min, close_min FROM fields`+where+` ORDER BY name, id LIMIT ? OFFSET ?`,
		listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []*Field
	for rows.Next() {
		f := &Field{IsActive: true}
		if err := rows.Scan(&f.ID, &f.Name, &f.Address, &f.OpenMin, &f.CloseMin); err != nil {
			return nil, 0, err
		}
		out = append(out, f)
	}
	return out, total, rows.Err()
}

// UpdateField updates mutable field columns.  A missing field reads as
// ErrFieldNotFound and a foreign one as ErrForbidden, so handlers can map
// the two cases to distinct status codes.
func (r *FieldRepo) UpdateField(ctx context.Context, f *Field, ownerID uint64) error {
	var dbOwnerID uint64
	if err := r.db.QueryRowContext(ctx, `SELECT owner_id FROM fields WHERE id = ?`, f.ID).Scan(&dbOwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrFieldNotFound
		}
		return err
	}
	if dbOwnerID != ownerID {
		return ErrForbidden
	}
	const q = `UPDATE fields
	           SET name = ?, address = ?, open_min = ?, close_min = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, f.Name, f.Address, f.OpenMin, f.CloseMin, f.ID); err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// RetireField flips a field and all of its sub-fields to inactive.  Fields
// are never hard-deleted: bookings keep referencing their sub-fields.
func (r *FieldRepo) RetireField(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	var dbOwnerID uint64
	if err = tx.QueryRowContext(ctx, `SELECT owner_id FROM fields WHERE id = ?`, id).Scan(&dbOwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrFieldNotFound
		}
		return err
	}
	if dbOwnerID != ownerID {
		err = ErrForbidden
		return err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE sub_fields SET is_active = 0 WHERE field_id = ?`, id); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `UPDATE fields SET is_active = 0 WHERE id = ?`, id)
	return err
}

// CreateSubField inserts a new sub-field and reads the row back.  Window
// containment against the parent field is validated by the handler before
// this call.
func (r *FieldRepo) CreateSubField(ctx context.Context, sf *SubField) error {
	const qInsert = `INSERT INTO sub_fields (field_id, name, open_min, close_min, default_price_cents)
	                 VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, sf.FieldID, sf.Name, sf.OpenMin, sf.CloseMin, sf.DefaultPriceCents)
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
	sf.ID = uint64(id)
	const qSelect = `SELECT id, field_id, name, open_min, close_min, default_price_cents, is_active, created_at, updated_at
	                 FROM sub_fields WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, sf.ID).Scan(
		&sf.ID, &sf.FieldID, &sf.Name, &sf.OpenMin, &sf.CloseMin, &sf.DefaultPriceCents, &sf.IsActive, &sf.CreatedAt, &sf.UpdatedAt)
}

// GetSubFieldByID fetches a sub-field by id, active or not.
func (r *FieldRepo) GetSubFieldByID(ctx context.Context, id uint64) (*SubField, error) {
	const q = `SELECT id, field_id, name, open_min, close_min, default_price_cents, is_active, created_at, updated_at
	           FROM sub_fields WHERE id = ?`
	var sf SubField
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&sf.ID, &sf.FieldID, &sf.Name, &sf.OpenMin, &sf.CloseMin, &sf.DefaultPriceCents, &sf.IsActive, &sf.CreatedAt, &sf.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubFieldNotFound
		}
		return nil, err
	}
	return &sf, nil
}

// GetActiveSubFieldByID fetches a sub-field only when it and its parent field
// are active.  Booking creation goes through this lookup so retired resources
// cannot accept new reservations.
func (r *FieldRepo) GetActiveSubFieldByID(ctx context.Context, id uint64) (*SubField, error) {
	const q = `SELECT sf.id, sf.field_id, sf.name, sf.open_min, sf.close_min, sf.default_price_cents, sf.is_active, sf.created_at, sf.updated_at
	           FROM sub_fields sf
	           JOIN fields f ON f.id = sf.field_id
	           WHERE sf.id = ? AND sf.is_active = 1 AND f.is_active = 1`
	var sf SubField
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&sf.ID, &sf.FieldID, &sf.Name, &sf.OpenMin, &sf.CloseMin, &sf.DefaultPriceCents, &sf.IsActive, &sf.CreatedAt, &sf.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubFieldNotFound
		}
		return nil, err
	}
	return &sf, nil
}

// ListSubFieldsByField returns all sub-fields of one field ordered by id.
// When activeOnly is set, retired sub-fields are skipped.
func (r *FieldRepo) ListSubFieldsByField(ctx context.Context, fieldID uint64, activeOnly bool) ([]*SubField, error) {
	q := `SELECT id, field_id, name, open_min, close_min, default_price_cents, is_active, created_at, updated_at
	      FROM sub_fields WHERE field_id = ?`
	if activeOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, fieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*SubField
	for rows.Next() {
		sf := new(SubField)
		if err := rows.Scan(&sf.ID, &sf.FieldID, &sf.Name, &sf.OpenMin, &sf.CloseMin, &sf.DefaultPriceCents, &sf.IsActive, &sf.CreatedAt, &sf.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, sf)
	}
	return out, rows.Err()
}

// UpdateSubField updates mutable sub-field columns after verifying the
// parent field belongs to the owner.  ErrSubFieldNotFound and ErrForbidden
// keep the missing and foreign cases apart.
func (r *FieldRepo) UpdateSubField(ctx context.Context, sf *SubField, ownerID uint64) error {
	dbOwnerID, err := r.OwnerOfSubField(ctx, sf.ID)
	if err != nil {
		return err
	}
	if dbOwnerID != ownerID {
		return ErrForbidden
	}
	const q = `UPDATE sub_fields
	           SET name = ?, open_min = ?, close_min = ?, default_price_cents = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, sf.Name, sf.OpenMin, sf.CloseMin, sf.DefaultPriceCents, sf.ID); err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// RetireSubField marks a sub-field inactive when its field belongs to the
// owner.  Existing bookings keep their reference.
func (r *FieldRepo) RetireSubField(ctx context.Context, id, ownerID uint64) error {
	dbOwnerID, err := r.OwnerOfSubField(ctx, id)
	if err != nil {
		return err
	}
	if dbOwnerID != ownerID {
		return ErrForbidden
	}
	const q = `UPDATE sub_fields SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err = r.db.ExecContext(ctx, q, id)
	return err
}

// OwnerOfSubField returns the owner id of the field containing the sub-field.
func (r *FieldRepo) OwnerOfSubField(ctx context.Context, subFieldID uint64) (uint64, error) {
	const q = `SELECT f.owner_id FROM sub_fields sf JOIN fields f ON f.id = sf.field_id WHERE sf.id = ?`
	var ownerID uint64
	if err := r.db.QueryRowContext(ctx, q, subFieldID).Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrSubFieldNotFound
		}
		return 0, err
	}
	return ownerID, nil
}
