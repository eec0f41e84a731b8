package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Promotion mirrors the `promotions` table.  Nullable limit columns map to
// pointers so nil means "no limit set".
type Promotion struct {
	ID               uint64
	Code             string
	DiscountType     string
	DiscountValue    int64
	MaxDiscountCents *int64
	MinBookingCents  *int64
	UsageLimit       *int
	UsageCount       int
	StartsAt         time.Time
	EndsAt           time.Time
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ErrPromotionNotFound is returned when a promotion code lookup fails.
var ErrPromotionNotFound = errors.New("promotion not found")

// ErrPromotionExhausted is returned by IncrementUsageTx when the guarded
// update finds the usage limit already reached; the caller lost a race for
// the last redemption.
var ErrPromotionExhausted = errors.New("promotion usage limit reached")

// PromotionRepo provides access to promotion codes.
type PromotionRepo struct {
	db *sql.DB
}

// NewPromotionRepo constructs a PromotionRepo with the given DB handle.
func NewPromotionRepo(db *sql.DB) *PromotionRepo { return &PromotionRepo{db: db} }

const promotionColumns = `id, code, discount_type, discount_value, max_discount_cents,
	min_booking_cents, usage_limit, usage_count, starts_at, ends_at, is_active, created_at, updated_at`

func scanPromotion(row interface{ Scan(...interface{}) error }) (*Promotion, error) {
	var p Promotion
	var maxDiscount, minBooking sql.NullInt64
	var usageLimit sql.NullInt64
	err := row.Scan(&p.ID, &p.Code, &p.DiscountType, &p.DiscountValue, &maxDiscount,
		&minBooking, &usageLimit, &p.UsageCount, &p.StartsAt, &p.EndsAt, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if maxDiscount.Valid {
		v := maxDiscount.Int64
		p.MaxDiscountCents = &v
	}
	if minBooking.Valid {
		v := minBooking.Int64
		p.MinBookingCents = &v
	}
	if usageLimit.Valid {
		v := int(usageLimit.Int64)
		p.UsageLimit = &v
	}
	return &p, nil
}

// Create inserts a promotion.  Codes are stored upper-cased and unique.
func (r *PromotionRepo) Create(ctx context.Context, p *Promotion) error {
	const qInsert = `INSERT INTO promotions
	    (code, discount_type, discount_value, max_discount_cents, min_booking_cents, usage_limit, starts_at, ends_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	var maxDiscount, minBooking, usageLimit interface{}
	if p.MaxDiscountCents != nil {
		maxDiscount = *p.MaxDiscountCents
	}
	if p.MinBookingCents != nil {
		minBooking = *p.MinBookingCents
	}
	if p.UsageLimit != nil {
		usageLimit = *p.UsageLimit
	}
	res, err := r.db.ExecContext(ctx, qInsert,
		strings.ToUpper(strings.TrimSpace(p.Code)), p.DiscountType, p.DiscountValue,
		maxDiscount, minBooking, usageLimit, p.StartsAt.UTC(), p.EndsAt.UTC())
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
	p.ID = uint64(id)
	got, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *got
	return nil
}

// GetByID fetches a promotion by primary key.
func (r *PromotionRepo) GetByID(ctx context.Context, id uint64) (*Promotion, error) {
	p, err := scanPromotion(r.db.QueryRowContext(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromotionNotFound
	}
	return p, err
}

// FindByCode fetches a promotion by its code regardless of state.  The
// engine's evaluator decides applicability; this lookup only answers "does
// the code exist".
func (r *PromotionRepo) FindByCode(ctx context.Context, code string) (*Promotion, error) {
	p, err := scanPromotion(r.db.QueryRowContext(ctx,
		`SELECT `+promotionColumns+` FROM promotions WHERE code = ?`,
		strings.ToUpper(strings.TrimSpace(code))))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPromotionNotFound
	}
	return p, err
}

// List returns all promotions ordered by id, newest last.
func (r *PromotionRepo) List(ctx context.Context) ([]*Promotion, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+promotionColumns+` FROM promotions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Promotion
	for rows.Next() {
		p, err := scanPromotion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Deactivate flips the manual kill switch on a code.
func (r *PromotionRepo) Deactivate(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE promotions SET is_active = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromotionNotFound
	}
	return nil
}

// IncrementUsageTx bumps the usage counter inside the booking transaction.
// The WHERE clause re-checks the limit so that concurrent redemptions of the
// last remaining use cannot both succeed: the loser sees zero affected rows
// and gets ErrPromotionExhausted, rolling its whole booking back.
func (r *PromotionRepo) IncrementUsageTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	const q = `UPDATE promotions
	           SET usage_count = usage_count + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND (usage_limit IS NULL OR usage_count < usage_limit)`
	res, err := tx.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrPromotionExhausted
	}
	return nil
}
