package repository

import (
	"context"
	"database/sql"
	"errors"
)

// PricingRule mirrors the `pricing_rules` table: one row per weekday and
// interval.  The engine's rule index groups rows per sub-field.
type PricingRule struct {
	ID         uint64
	SubFieldID uint64
	DayOfWeek  int
	StartMin   int
	EndMin     int
	PriceCents int64
	CreatedAt  string
	UpdatedAt  string
}

// ErrRuleNotFound is returned when a pricing rule lookup fails.
var ErrRuleNotFound = errors.New("pricing rule not found")

// PricingRuleRepo provides access to pricing rules.
type PricingRuleRepo struct {
	db *sql.DB
}

// NewPricingRuleRepo constructs a PricingRuleRepo with the given DB handle.
func NewPricingRuleRepo(db *sql.DB) *PricingRuleRepo { return &PricingRuleRepo{db: db} }

// Create inserts a pricing rule after the handler has validated alignment,
// window containment and non-overlap against the existing rule set.
func (r *PricingRuleRepo) Create(ctx context.Context, pr *PricingRule) error {
	const qInsert = `INSERT INTO pricing_rules (sub_field_id, day_of_week, start_min, end_min, price_cents)
	                 VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert, pr.SubFieldID, pr.DayOfWeek, pr.StartMin, pr.EndMin, pr.PriceCents)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	pr.ID = uint64(id)
	const qSelect = `SELECT id, sub_field_id, day_of_week, start_min, end_min, price_cents, created_at, updated_at
	                 FROM pricing_rules WHERE id = ?`
	return r.db.QueryRowContext(ctx, qSelect, pr.ID).Scan(
		&pr.ID, &pr.SubFieldID, &pr.DayOfWeek, &pr.StartMin, &pr.EndMin, &pr.PriceCents, &pr.CreatedAt, &pr.UpdatedAt)
}

// ListBySubField returns every rule of one sub-field ordered by weekday and
// start time.  The booking service feeds this into the engine's rule index.
func (r *PricingRuleRepo) ListBySubField(ctx context.Context, subFieldID uint64) ([]*PricingRule, error) {
	const q = `SELECT id, sub_field_id, day_of_week, start_min, end_min, price_cents, created_at, updated_at
	           FROM pricing_rules WHERE sub_field_id = ? ORDER BY day_of_week, start_min`
	rows, err := r.db.QueryContext(ctx, q, subFieldID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*PricingRule
	for rows.Next() {
		pr := new(PricingRule)
		if err := rows.Scan(&pr.ID, &pr.SubFieldID, &pr.DayOfWeek, &pr.StartMin, &pr.EndMin, &pr.PriceCents, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// ListForWeekday returns the rules of one sub-field restricted to a weekday,
// used by the availability/pricing preview endpoint.
func (r *PricingRuleRepo) ListForWeekday(ctx context.Context, subFieldID uint64, dayOfWeek int) ([]*PricingRule, error) {
	const q = `SELECT id, sub_field_id, day_of_week, start_min, end_min, price_cents, created_at, updated_at
	           FROM pricing_rules WHERE sub_field_id = ? AND day_of_week = ? ORDER BY start_min`
	rows, err := r.db.QueryContext(ctx, q, subFieldID, dayOfWeek)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*PricingRule
	for rows.Next() {
		pr := new(PricingRule)
		if err := rows.Scan(&pr.ID, &pr.SubFieldID, &pr.DayOfWeek, &pr.StartMin, &pr.EndMin, &pr.PriceCents, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

// DeleteByIDAndOwner removes a rule after verifying the chain of ownership
// through the sub-field's parent field.
func (r *PricingRuleRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	const checkQ = `SELECT f.owner_id
	                FROM pricing_rules pr
	                JOIN sub_fields sf ON sf.id = pr.sub_field_id
	                JOIN fields f ON f.id = sf.field_id
	                WHERE pr.id = ?`
	var actualOwnerID uint64
	if err := r.db.QueryRowContext(ctx, checkQ, id).Scan(&actualOwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRuleNotFound
		}
		return err
	}
	if actualOwnerID != ownerID {
		return ErrForbidden
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM pricing_rules WHERE id = ?`, id)
	return err
}
