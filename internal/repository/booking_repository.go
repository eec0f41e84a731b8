package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// BookingRepo provides CRUD operations for bookings, their slot rows and
// their add-on rows.  A booking reserves one sub-field for one date; slot
// rows carry the per-unit prices and, through their unique key over
// (sub_field_id, booking_date, start_min), make double-booking impossible at
// the storage level.  All timestamps are stored in UTC; booking_date is a
// plain DATE column.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a new BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// DB exposes the underlying handle for transaction scoping by the service.
func (r *BookingRepo) DB() *sql.DB { return r.db }

// Booking mirrors the schema of the bookings table.
type Booking struct {
	ID               uint64
	Code             string
	UserID           uint64
	SubFieldID       uint64
	BookingDate      time.Time
	SubtotalCents    int64
	DiscountCents    int64
	TotalCents       int64
	PromotionID      *uint64
	Status           string
	PaymentStatus    string
	PrimaryBookingID *uint64
	ReminderSent     bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// BookingSlot mirrors the booking_slots table.  Only fields needed for
// insertion and conflict reporting are exposed.
type BookingSlot struct {
	ID          uint64
	BookingID   uint64
	SubFieldID  uint64
	BookingDate time.Time
	StartMin    int
	EndMin      int
	PriceCents  int64
}

// BookingServiceRow mirrors the booking_services table.
type BookingServiceRow struct {
	BookingID      uint64
	FieldServiceID uint64
	Quantity       int
	PriceCents     int64
}

// BookedSlotRow is a minimal read view used by the availability check: one
// reserved slot and the booking that holds it.
type BookedSlotRow struct {
	BookingID uint64
	StartMin  int
	EndMin    int
}

// ErrBookingNotFound is returned when a booking lookup fails.
var ErrBookingNotFound = errors.New("booking not found")

const bookingColumns = `id, code, user_id, sub_field_id, booking_date, subtotal_cents, discount_cents,
	total_cents, promotion_id, status, payment_status, primary_booking_id, reminder_sent, created_at, updated_at`

func scanBooking(row interface{ Scan(...interface{}) error }) (*Booking, error) {
	var b Booking
	var promoID, primaryID sql.NullInt64
	err := row.Scan(&b.ID, &b.Code, &b.UserID, &b.SubFieldID, &b.BookingDate, &b.SubtotalCents,
		&b.DiscountCents, &b.TotalCents, &promoID, &b.Status, &b.PaymentStatus, &primaryID,
		&b.ReminderSent, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if promoID.Valid {
		v := uint64(promoID.Int64)
		b.PromotionID = &v
	}
	if primaryID.Valid {
		v := uint64(primaryID.Int64)
		b.PrimaryBookingID = &v
	}
	return &b, nil
}

// ListActiveSlots returns every reserved slot of non-cancelled bookings for
// one sub-field and date.  This feeds the fast-path availability check.
func (r *BookingRepo) ListActiveSlots(ctx context.Context, subFieldID uint64, date time.Time) ([]BookedSlotRow, error) {
	const q = `SELECT s.booking_id, s.start_min, s.end_min
	           FROM booking_slots s
	           JOIN bookings b ON b.id = s.booking_id
	           WHERE s.sub_field_id = ? AND s.booking_date = ? AND b.status <> 'CANCELLED'
	           ORDER BY s.start_min`
	return r.queryslots(ctx, r.db.QueryContext, q, subFieldID, date.UTC().Format("2006-01-02"))
}

// ListActiveSlotsTx is ListActiveSlots inside a transaction with FOR UPDATE,
// serializing the re-check against concurrent writers for the same
// sub-field/date before the graph is written.
func (r *BookingRepo) ListActiveSlotsTx(ctx context.Context, tx *sql.Tx, subFieldID uint64, date time.Time) ([]BookedSlotRow, error) {
	const q = `SELECT s.booking_id, s.start_min, s.end_min
	           FROM booking_slots s
	           JOIN bookings b ON b.id = s.booking_id
	           WHERE s.sub_field_id = ? AND s.booking_date = ? AND b.status <> 'CANCELLED'
	           ORDER BY s.start_min
	           FOR UPDATE`
	return r.queryslots(ctx, tx.QueryContext, q, subFieldID, date.UTC().Format("2006-01-02"))
}

type queryFn func(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)

func (r *BookingRepo) queryslots(ctx context.Context, query queryFn, q string, args ...interface{}) ([]BookedSlotRow, error) {
	rows, err := query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BookedSlotRow
	for rows.Next() {
		var s BookedSlotRow
		if err := rows.Scan(&s.BookingID, &s.StartMin, &s.EndMin); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateTx inserts a new booking within the scope of an existing transaction
// and populates the generated ID and default columns on the provided record.
// The caller must commit or roll back the transaction.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *Booking) error {
	const q = `INSERT INTO bookings
	    (code, user_id, sub_field_id, booking_date, subtotal_cents, discount_cents, total_cents,
	     promotion_id, status, payment_status, primary_booking_id)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var promoID, primaryID interface{}
	if b.PromotionID != nil {
		promoID = *b.PromotionID
	}
	if b.PrimaryBookingID != nil {
		primaryID = *b.PrimaryBookingID
	}
	res, err := tx.ExecContext(ctx, q, b.Code, b.UserID, b.SubFieldID,
		b.BookingDate.UTC().Format("2006-01-02"), b.SubtotalCents, b.DiscountCents, b.TotalCents,
		promoID, b.Status, b.PaymentStatus, primaryID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	got, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, b.ID))
	if err != nil {
		return err
	}
	*b = *got
	return nil
}

// CreateSlotsBulkTx inserts the slot rows of one booking in a single
// statement.  A unique-key violation means another transaction committed an
// overlapping slot first; it is surfaced as ErrDuplicate so the service can
// translate the lost race into a slot conflict.  Passing an empty slice has
// no effect and returns nil.
func (r *BookingRepo) CreateSlotsBulkTx(ctx context.Context, tx *sql.Tx, slots []BookingSlot) error {
	if len(slots) == 0 {
		return nil
	}
	query := `INSERT INTO booking_slots (booking_id, sub_field_id, booking_date, start_min, end_min, price_cents) VALUES `
	args := make([]interface{}, 0, len(slots)*6)
	for i, s := range slots {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?)"
		args = append(args, s.BookingID, s.SubFieldID, s.BookingDate.UTC().Format("2006-01-02"),
			s.StartMin, s.EndMin, s.PriceCents)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		if IsDuplicateKey(err) {
			return ErrDuplicate
		}
		return err
	}
	return nil
}

// CreateServicesBulkTx inserts the add-on rows of one booking.
func (r *BookingRepo) CreateServicesBulkTx(ctx context.Context, tx *sql.Tx, services []BookingServiceRow) error {
	if len(services) == 0 {
		return nil
	}
	query := `INSERT INTO booking_services (booking_id, field_service_id, quantity, price_cents) VALUES `
	args := make([]interface{}, 0, len(services)*4)
	for i, s := range services {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, s.BookingID, s.FieldServiceID, s.Quantity, s.PriceCents)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// AddOnTotalTx sums the add-on rows attached to a booking at their stored
// unit prices.  Add-ons are time-independent, so a reschedule keeps the rows
// and folds this total back into the recomputed subtotal.
func (r *BookingRepo) AddOnTotalTx(ctx context.Context, tx *sql.Tx, bookingID uint64) (int64, error) {
	var total int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity * price_cents), 0) FROM booking_services WHERE booking_id = ?`,
		bookingID).Scan(&total)
	return total, err
}

// GetByID fetches a booking by primary key.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (*Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// GetForUpdateTx loads a booking with a row lock so a status mutation sees a
// stable state for the whole transaction.
func (r *BookingRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*Booking, error) {
	b, err := scanBooking(tx.QueryRowContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE id = ? FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBookingNotFound
	}
	return b, err
}

// LinkedTx returns the linked bookings referencing a primary booking, locked
// for the duration of the transaction.
func (r *BookingRepo) LinkedTx(ctx context.Context, tx *sql.Tx, primaryID uint64) ([]*Booking, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE primary_booking_id = ? ORDER BY id FOR UPDATE`, primaryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateStatusTx sets the lifecycle status of one booking.  Transition
// legality is the state machine's concern; this only writes.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status string) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// DeleteSlotsTx removes the slot rows of the given bookings, freeing their
// units for rebooking.  Cancelled and rescheduled bookings must release
// their rows because the unique key cannot distinguish live from dead slots.
func (r *BookingRepo) DeleteSlotsTx(ctx context.Context, tx *sql.Tx, bookingIDs []uint64) error {
	if len(bookingIDs) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(bookingIDs)), ",")
	args := make([]interface{}, 0, len(bookingIDs))
	for _, id := range bookingIDs {
		args = append(args, id)
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM booking_slots WHERE booking_id IN (`+placeholders+`)`, args...)
	return err
}

// UpdateQuoteTx rewrites the priced part of a booking after a reschedule:
// new date, new subtotal and total.  The caller replaces slot rows in the
// same transaction.
func (r *BookingRepo) UpdateQuoteTx(ctx context.Context, tx *sql.Tx, id uint64, date time.Time, subtotal, discount, total int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE bookings SET booking_date = ?, subtotal_cents = ?, discount_cents = ?, total_cents = ?,
		 status = 'PENDING', updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		date.UTC().Format("2006-01-02"), subtotal, discount, total, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// SetPaymentStatus records what the payment collaborator reported.  It is a
// plain column write; the state machine consults it when deciding whether a
// booking is still editable.
func (r *BookingRepo) SetPaymentStatus(ctx context.Context, id uint64, paymentStatus string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET payment_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, paymentStatus, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// ListSlotsByBooking returns the slot rows of one booking ordered by start.
func (r *BookingRepo) ListSlotsByBooking(ctx context.Context, bookingID uint64) ([]BookingSlot, error) {
	const q = `SELECT id, booking_id, sub_field_id, booking_date, start_min, end_min, price_cents
	           FROM booking_slots WHERE booking_id = ? ORDER BY start_min`
	rows, err := r.db.QueryContext(ctx, q, bookingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BookingSlot
	for rows.Next() {
		var s BookingSlot
		if err := rows.Scan(&s.ID, &s.BookingID, &s.SubFieldID, &s.BookingDate, &s.StartMin, &s.EndMin, &s.PriceCents); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// BookingDetail is a booking joined with its field and sub-field names and
// its slot list, as returned to customers and owners.
type BookingDetail struct {
	ID            uint64     `json:"id"`
	Code          string     `json:"code"`
	UserID        uint64     `json:"user_id,omitempty"`
	SubFieldID    uint64     `json:"sub_field_id"`
	SubFieldName  string     `json:"sub_field_name"`
	FieldID       uint64     `json:"field_id"`
	FieldName     string     `json:"field_name"`
	BookingDate   string     `json:"booking_date"`
	SubtotalCents int64      `json:"subtotal_cents"`
	DiscountCents int64      `json:"discount_cents"`
	TotalCents    int64      `json:"total_cents"`
	Status        string     `json:"status"`
	PaymentStatus string     `json:"payment_status"`
	PrimaryID     *uint64    `json:"primary_booking_id,omitempty"`
	Slots         []SlotView `json:"slots"`
}

// SlotView is one slot inside a BookingDetail.
type SlotView struct {
	StartMin   int   `json:"start_min"`
	EndMin     int   `json:"end_min"`
	PriceCents int64 `json:"price_cents"`
}

const detailQuery = `SELECT b.id, b.code, b.user_id, b.sub_field_id, sf.name, f.id, f.name,
	       DATE_FORMAT(b.booking_date, '%Y-%m-%d'), b.subtotal_cents, b.discount_cents, b.total_cents,
	       b.status, b.payment_status, b.primary_booking_id
	FROM bookings b
	JOIN sub_fields sf ON sf.id = b.sub_field_id
	JOIN fields f ON f.id = sf.field_id`

func scanDetail(rows interface{ Scan(...interface{}) error }) (*BookingDetail, error) {
	var d BookingDetail
	var primaryID sql.NullInt64
	err := rows.Scan(&d.ID, &d.Code, &d.UserID, &d.SubFieldID, &d.SubFieldName, &d.FieldID, &d.FieldName,
		&d.BookingDate, &d.SubtotalCents, &d.DiscountCents, &d.TotalCents,
		&d.Status, &d.PaymentStatus, &primaryID)
	if err != nil {
		return nil, err
	}
	if primaryID.Valid {
		v := uint64(primaryID.Int64)
		d.PrimaryID = &v
	}
	d.Slots = []SlotView{}
	return &d, nil
}

// attachSlots populates the slot lists of the given details in one query.
func (r *BookingRepo) attachSlots(ctx context.Context, details []*BookingDetail) error {
	if len(details) == 0 {
		return nil
	}
	index := make(map[uint64]*BookingDetail, len(details))
	ids := make([]interface{}, 0, len(details))
	placeholders := make([]string, 0, len(details))
	for _, d := range details {
		index[d.ID] = d
		ids = append(ids, d.ID)
		placeholders = append(placeholders, "?")
	}
	q := `SELECT booking_id, start_min, end_min, price_cents
	      FROM booking_slots
	      WHERE booking_id IN (` + strings.Join(placeholders, ",") + `)
	      ORDER BY booking_id, start_min`
	rows, err := r.db.QueryContext(ctx, q, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var bid uint64
		var s SlotView
		if err := rows.Scan(&bid, &s.StartMin, &s.EndMin, &s.PriceCents); err != nil {
			return err
		}
		if d, ok := index[bid]; ok {
			d.Slots = append(d.Slots, s)
		}
	}
	return rows.Err()
}

// ListByUser returns all bookings of one user with field and slot details,
// newest first.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64) ([]*BookingDetail, error) {
	q := detailQuery + ` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*BookingDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachSlots(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetDetailForUser returns a single booking of the given user.  Ownership is
// enforced in the query; a foreign booking reads as not found.
func (r *BookingRepo) GetDetailForUser(ctx context.Context, bookingID, userID uint64) (*BookingDetail, error) {
	q := detailQuery + ` WHERE b.id = ? AND b.user_id = ?`
	d, err := scanDetail(r.db.QueryRowContext(ctx, q, bookingID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if err := r.attachSlots(ctx, []*BookingDetail{d}); err != nil {
		return nil, err
	}
	return d, nil
}

// ListBySubFieldForOwner returns the bookings on one sub-field and date when
// accessed by the owner of its field.  ErrForbidden is returned when the
// sub-field belongs to someone else.
func (r *BookingRepo) ListBySubFieldForOwner(ctx context.Context, subFieldID, ownerID uint64, date time.Time) ([]*BookingDetail, error) {
	const checkQ = `SELECT f.owner_id FROM sub_fields sf JOIN fields f ON f.id = sf.field_id WHERE sf.id = ?`
	var actualOwnerID uint64
	if err := r.db.QueryRowContext(ctx, checkQ, subFieldID).Scan(&actualOwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubFieldNotFound
		}
		return nil, err
	}
	if actualOwnerID != ownerID {
		return nil, ErrForbidden
	}
	q := detailQuery + ` WHERE b.sub_field_id = ? AND b.booking_date = ? ORDER BY b.created_at DESC, b.id DESC`
	rows, err := r.db.QueryContext(ctx, q, subFieldID, date.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*BookingDetail
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachSlots(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// OwnerOfBooking returns the owner id of the field the booking sits on.
func (r *BookingRepo) OwnerOfBooking(ctx context.Context, bookingID uint64) (uint64, error) {
	const q = `SELECT f.owner_id
	           FROM bookings b
	           JOIN sub_fields sf ON sf.id = b.sub_field_id
	           JOIN fields f ON f.id = sf.field_id
	           WHERE b.id = ?`
	var ownerID uint64
	if err := r.db.QueryRowContext(ctx, q, bookingID).Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrBookingNotFound
		}
		return 0, err
	}
	return ownerID, nil
}

// ListElapsedConfirmed returns ids of CONFIRMED bookings whose latest slot
// has fully ended before asOf.  The completion sweep feeds these through the
// state machine.
func (r *BookingRepo) ListElapsedConfirmed(ctx context.Context, asOf time.Time) ([]uint64, error) {
	asOf = asOf.UTC()
	const q = `SELECT b.id
	           FROM bookings b
	           JOIN booking_slots s ON s.booking_id = b.id
	           WHERE b.status = 'CONFIRMED'
	           GROUP BY b.id, b.booking_date
	           HAVING b.booking_date < ? OR (b.booking_date = ? AND MAX(s.end_min) <= ?)`
	day := asOf.Format("2006-01-02")
	minOfDay := asOf.Hour()*60 + asOf.Minute()
	rows, err := r.db.QueryContext(ctx, q, day, day, minOfDay)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListReminderCandidates returns active bookings on the given date whose
// reminder has not been sent yet.
func (r *BookingRepo) ListReminderCandidates(ctx context.Context, date time.Time) ([]*Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings
	      WHERE booking_date = ? AND reminder_sent = 0 AND status IN ('PENDING', 'CONFIRMED')`
	rows, err := r.db.QueryContext(ctx, q, date.UTC().Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ClaimReminder flips the one-shot reminder flag with a guarded update and
// reports whether this caller won the claim.  A false return means another
// worker already sent (or is sending) the reminder; the flag is never reset.
func (r *BookingRepo) ClaimReminder(ctx context.Context, bookingID uint64) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET reminder_sent = 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND reminder_sent = 0`, bookingID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
