// Package service hosts the booking workflow: quoting, promotion handling
// and the atomic multi-sub-field reservation transaction.  Handlers stay
// thin and translate the errors surfaced here into HTTP responses.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/cuthanhcam/sport-field-booking/internal/engine"
	q "github.com/cuthanhcam/sport-field-booking/internal/queue"
	"github.com/cuthanhcam/sport-field-booking/internal/repository"
)

// ErrTooManySubFields is returned when a request asks to reserve more
// sub-fields than one transaction allows.
var ErrTooManySubFields = errors.New("too many sub-fields in one booking")

// ErrPastDate is returned when the requested booking date is already over.
var ErrPastDate = errors.New("booking date is in the past")

// BookingService coordinates the reservation workflow across repositories.
// Every mutation runs inside a single database transaction so a booking
// spanning several sub-fields is either fully reserved or not at all.
type BookingService struct {
	Bookings   *repository.BookingRepo
	Fields     *repository.FieldRepo
	Rules      *repository.PricingRuleRepo
	Services   *repository.FieldServiceRepo
	Promotions *repository.PromotionRepo

	// MaxSubFields caps the sub-fields one booking transaction may span.
	MaxSubFields int

	// now is swappable in tests.
	now func() time.Time
}

// NewBookingService constructs a BookingService.  All repositories must be
// non-nil.
func NewBookingService(bookings *repository.BookingRepo, fields *repository.FieldRepo, rules *repository.PricingRuleRepo, services *repository.FieldServiceRepo, promotions *repository.PromotionRepo, maxSubFields int) *BookingService {
	if bookings == nil || fields == nil || rules == nil || services == nil || promotions == nil {
		panic("nil repository passed to NewBookingService")
	}
	if maxSubFields <= 0 {
		maxSubFields = 5
	}
	return &BookingService{
		Bookings:     bookings,
		Fields:       fields,
		Rules:        rules,
		Services:     services,
		Promotions:   promotions,
		MaxSubFields: maxSubFields,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SubFieldRequest is one sub-field and its requested intervals inside a
// booking request.
type SubFieldRequest struct {
	SubFieldID uint64
	Ranges     []engine.TimeRange
}

// AddOnRequest is one requested facility service with a quantity.
type AddOnRequest struct {
	ServiceID uint64
	Quantity  int
}

// CreateBookingInput carries everything needed to reserve one or more
// sub-fields on a single date.
type CreateBookingInput struct {
	UserID    uint64
	Date      time.Time
	SubFields []SubFieldRequest
	AddOns    []AddOnRequest
	PromoCode string
	// RequirePromotion turns an ineligible promo code into a hard failure
	// instead of a warning on the result.
	RequirePromotion bool
}

// BookingSummary is the per-booking slice of a creation result.
type BookingSummary struct {
	ID            uint64             `json:"id"`
	Code          string             `json:"code"`
	SubFieldID    uint64             `json:"sub_field_id"`
	Slots         []engine.SlotPrice `json:"slots"`
	SubtotalCents int64              `json:"subtotal_cents"`
	DiscountCents int64              `json:"discount_cents"`
	TotalCents    int64              `json:"total_cents"`
	Status        string             `json:"status"`
}

// CreateBookingResult reports the reserved graph.  PromoWarning is set when
// a promo code was supplied but did not apply; the booking itself succeeds
// at full price in that case.
type CreateBookingResult struct {
	Primary       BookingSummary   `json:"booking"`
	Linked        []BookingSummary `json:"linked_bookings,omitempty"`
	SubtotalCents int64            `json:"subtotal_cents"`
	DiscountCents int64            `json:"discount_cents"`
	TotalCents    int64            `json:"total_cents"`
	PromoWarning  string           `json:"promo_warning,omitempty"`
}

// quoted is the priced, validated plan for one sub-field before the
// transaction runs.
type quoted struct {
	sub      *repository.SubField
	ranges   []engine.TimeRange
	slots    []engine.SlotPrice
	subtotal int64
}

// ruleIndexFor builds the pricing index of one sub-field from its stored
// rules.
func (s *BookingService) ruleIndexFor(ctx context.Context, sub *repository.SubField) (*engine.RuleIndex, error) {
	stored, err := s.Rules.ListBySubField(ctx, sub.ID)
	if err != nil {
		return nil, err
	}
	rules := make([]engine.Rule, 0, len(stored))
	for _, pr := range stored {
		rules = append(rules, engine.Rule{
			Weekday:    time.Weekday(pr.DayOfWeek),
			Interval:   engine.TimeRange{StartMin: pr.StartMin, EndMin: pr.EndMin},
			PriceCents: pr.PriceCents,
		})
	}
	return engine.NewRuleIndex(sub.DefaultPriceCents, rules)
}

// toBooked converts stored slot rows to the checker's read view.
func toBooked(rows []repository.BookedSlotRow) []engine.BookedSlot {
	out := make([]engine.BookedSlot, 0, len(rows))
	for _, r := range rows {
		out = append(out, engine.BookedSlot{
			BookingID: r.BookingID,
			Range:     engine.TimeRange{StartMin: r.StartMin, EndMin: r.EndMin},
		})
	}
	return out
}

// CreateBooking validates, prices and reserves the requested sub-fields in
// one transaction.  Conflicts are collected across every requested
// sub-field before failing so the caller sees the complete picture, and the
// availability check is repeated under row locks inside the transaction.
// The unique key on slot rows catches any race the locks miss; losing that
// race surfaces as a slot conflict, never as a torn booking.
func (s *BookingService) CreateBooking(ctx context.Context, in CreateBookingInput) (*CreateBookingResult, error) {
	if len(in.SubFields) == 0 {
		return nil, &engine.ValidationError{Reason: "at least one sub-field is required"}
	}
	if len(in.SubFields) > s.MaxSubFields {
		return nil, ErrTooManySubFields
	}
	date := engine.DateOf(in.Date)
	if date.Before(engine.DateOf(s.now())) {
		return nil, ErrPastDate
	}
	seen := make(map[uint64]struct{}, len(in.SubFields))
	for _, req := range in.SubFields {
		if _, dup := seen[req.SubFieldID]; dup {
			return nil, &engine.ValidationError{Reason: "duplicate sub-field in request"}
		}
		seen[req.SubFieldID] = struct{}{}
	}

	// Validate and price every sub-field, then run the fast-path check.
	plans := make([]quoted, 0, len(in.SubFields))
	var conflicts []engine.Conflict
	var subtotal int64
	for _, req := range in.SubFields {
		sub, err := s.Fields.GetActiveSubFieldByID(ctx, req.SubFieldID)
		if err != nil {
			return nil, err
		}
		window := engine.TimeRange{StartMin: sub.OpenMin, EndMin: sub.CloseMin}
		ranges, err := engine.NormalizeRanges(req.Ranges, window)
		if err != nil {
			return nil, err
		}
		index, err := s.ruleIndexFor(ctx, sub)
		if err != nil {
			return nil, err
		}
		slots, sum := index.Quote(date, ranges)
		existing, err := s.Bookings.ListActiveSlots(ctx, sub.ID, date)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, engine.CheckAvailability(sub.ID, date, ranges, toBooked(existing), 0)...)
		plans = append(plans, quoted{sub: sub, ranges: ranges, slots: slots, subtotal: sum})
		subtotal += sum
	}
	if len(conflicts) > 0 {
		return nil, &engine.ConflictError{Conflicts: conflicts}
	}

	// Add-ons are priced against the primary sub-field's parent field.
	addOns, addOnRows, err := s.resolveAddOns(ctx, plans[0].sub.FieldID, in.AddOns)
	if err != nil {
		return nil, err
	}
	addOnTotal := engine.AddOnTotal(addOns)
	subtotal += addOnTotal

	// Promotion evaluation happens against the whole-transaction subtotal.
	// An ineligible code downgrades to a warning and the booking proceeds at
	// full price, unless the caller insisted on the discount.
	var promo *repository.Promotion
	var discount int64
	var promoWarning string
	if in.PromoCode != "" {
		var ineligible *engine.PromoIneligibleError
		promo, discount, ineligible, err = s.evaluatePromo(ctx, in.PromoCode, subtotal)
		if err != nil {
			return nil, err
		}
		if ineligible != nil {
			if in.RequirePromotion {
				return nil, ineligible
			}
			promoWarning = ineligible.Error()
		}
	}

	tx, err := s.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	// Re-check under row locks; another transaction may have committed
	// between the fast path and here.
	conflicts = conflicts[:0]
	for _, p := range plans {
		existing, err := s.Bookings.ListActiveSlotsTx(ctx, tx, p.sub.ID, date)
		if err != nil {
			return nil, err
		}
		conflicts = append(conflicts, engine.CheckAvailability(p.sub.ID, date, p.ranges, toBooked(existing), 0)...)
	}
	if len(conflicts) > 0 {
		return nil, &engine.ConflictError{Conflicts: conflicts}
	}

	result := &CreateBookingResult{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		PromoWarning:  promoWarning,
	}
	var primaryID uint64
	for i, p := range plans {
		b := &repository.Booking{
			Code:          uuid.NewString(),
			UserID:        in.UserID,
			SubFieldID:    p.sub.ID,
			BookingDate:   date,
			SubtotalCents: p.subtotal,
			Status:        string(engine.StatusPending),
			PaymentStatus: string(engine.PaymentUnpaid),
		}
		if i == 0 {
			// The primary row carries the add-ons and the discount.
			b.SubtotalCents += addOnTotal
			b.DiscountCents = discount
			if promo != nil && discount > 0 {
				b.PromotionID = &promo.ID
			}
		} else {
			b.PrimaryBookingID = &primaryID
		}
		b.TotalCents = b.SubtotalCents - b.DiscountCents
		if err := s.Bookings.CreateTx(ctx, tx, b); err != nil {
			return nil, err
		}
		if i == 0 {
			primaryID = b.ID
		}
		slotRows := make([]repository.BookingSlot, 0, len(p.slots))
		for _, sp := range p.slots {
			slotRows = append(slotRows, repository.BookingSlot{
				BookingID:   b.ID,
				SubFieldID:  p.sub.ID,
				BookingDate: date,
				StartMin:    sp.Unit.StartMin,
				EndMin:      sp.Unit.EndMin,
				PriceCents:  sp.PriceCents,
			})
		}
		if err := s.Bookings.CreateSlotsBulkTx(ctx, tx, slotRows); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, &engine.ConflictError{Conflicts: requestedAsConflicts(p.sub.ID, date, p.ranges)}
			}
			return nil, err
		}
		summary := BookingSummary{
			ID:            b.ID,
			Code:          b.Code,
			SubFieldID:    p.sub.ID,
			Slots:         p.slots,
			SubtotalCents: b.SubtotalCents,
			DiscountCents: b.DiscountCents,
			TotalCents:    b.TotalCents,
			Status:        b.Status,
		}
		if i == 0 {
			result.Primary = summary
		} else {
			result.Linked = append(result.Linked, summary)
		}
	}
	for i := range addOnRows {
		addOnRows[i].BookingID = primaryID
	}
	if err := s.Bookings.CreateServicesBulkTx(ctx, tx, addOnRows); err != nil {
		return nil, err
	}
	// The usage counter moves inside the same transaction as the booking,
	// guarded against the limit, so the last redemption cannot be spent
	// twice.
	if promo != nil && discount > 0 {
		if err := s.Promotions.IncrementUsageTx(ctx, tx, promo.ID); err != nil {
			if errors.Is(err, repository.ErrPromotionExhausted) {
				return nil, &engine.PromoIneligibleError{Code: promo.Code, Reason: engine.PromoUsageLimit}
			}
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, &engine.ConflictError{Conflicts: requestedAsConflicts(plans[0].sub.ID, date, plans[0].ranges)}
		}
		return nil, err
	}
	committed = true
	return result, nil
}

// resolveAddOns validates requested services against the field and prices
// them at the current unit price.
func (s *BookingService) resolveAddOns(ctx context.Context, fieldID uint64, reqs []AddOnRequest) ([]engine.AddOn, []repository.BookingServiceRow, error) {
	if len(reqs) == 0 {
		return nil, nil, nil
	}
	ids := make([]uint64, 0, len(reqs))
	for _, a := range reqs {
		if a.Quantity <= 0 {
			return nil, nil, &engine.ValidationError{Reason: "add-on quantity must be positive"}
		}
		ids = append(ids, a.ServiceID)
	}
	available, err := s.Services.GetActiveByIDs(ctx, fieldID, ids)
	if err != nil {
		return nil, nil, err
	}
	addOns := make([]engine.AddOn, 0, len(reqs))
	rows := make([]repository.BookingServiceRow, 0, len(reqs))
	for _, a := range reqs {
		svc, ok := available[a.ServiceID]
		if !ok {
			return nil, nil, repository.ErrServiceNotFound
		}
		addOns = append(addOns, engine.AddOn{ServiceID: svc.ID, Quantity: a.Quantity, UnitPriceCents: svc.PriceCents})
		rows = append(rows, repository.BookingServiceRow{FieldServiceID: svc.ID, Quantity: a.Quantity, PriceCents: svc.PriceCents})
	}
	return addOns, rows, nil
}

// evaluatePromo looks up the code and computes the discount.  Ineligibility
// comes back as a typed result the caller can soften into a warning or
// re-raise; database failures still propagate.
func (s *BookingService) evaluatePromo(ctx context.Context, code string, subtotal int64) (*repository.Promotion, int64, *engine.PromoIneligibleError, error) {
	stored, err := s.Promotions.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrPromotionNotFound) {
			return nil, 0, &engine.PromoIneligibleError{Code: code, Reason: engine.PromoNotFound}, nil
		}
		return nil, 0, nil, err
	}
	discount, err := engine.EvaluatePromotion(toEnginePromo(stored), subtotal, s.now())
	if err != nil {
		var ineligible *engine.PromoIneligibleError
		if errors.As(err, &ineligible) {
			return nil, 0, ineligible, nil
		}
		return nil, 0, nil, err
	}
	return stored, discount, nil, nil
}

func toEnginePromo(p *repository.Promotion) *engine.Promotion {
	return &engine.Promotion{
		ID:               p.ID,
		Code:             p.Code,
		DiscountType:     p.DiscountType,
		DiscountValue:    p.DiscountValue,
		MaxDiscountCents: p.MaxDiscountCents,
		MinBookingCents:  p.MinBookingCents,
		UsageLimit:       p.UsageLimit,
		UsageCount:       p.UsageCount,
		StartsAt:         p.StartsAt,
		EndsAt:           p.EndsAt,
		IsActive:         p.IsActive,
	}
}

// requestedAsConflicts reports the requested ranges as conflicts when the
// unique key fired but the winning booking is unknown.
func requestedAsConflicts(subFieldID uint64, date time.Time, ranges []engine.TimeRange) []engine.Conflict {
	out := make([]engine.Conflict, 0, len(ranges))
	for _, r := range ranges {
		out = append(out, engine.Conflict{SubFieldID: subFieldID, Date: date, Requested: r, Booked: r})
	}
	return out
}

// ConfirmBooking moves a pending booking (and its linked bookings) to
// CONFIRMED and publishes a confirmation event after commit.  Only the
// booking's own customer may confirm, and only the primary booking of a
// multi-sub-field transaction can be confirmed directly.
func (s *BookingService) ConfirmBooking(ctx context.Context, userID, bookingID uint64) error {
	return s.confirm(ctx, bookingID, byCustomer(userID))
}

// OwnerConfirmBooking lets the owner of the field confirm a booking taken on
// one of their sub-fields.
func (s *BookingService) OwnerConfirmBooking(ctx context.Context, ownerID, bookingID uint64) error {
	return s.confirm(ctx, bookingID, s.byOwner(ctx, ownerID))
}

// byCustomer authorizes the booking's own customer.
func byCustomer(userID uint64) func(*repository.Booking) error {
	return func(b *repository.Booking) error {
		if b.UserID != userID {
			return repository.ErrForbidden
		}
		return nil
	}
}

// byOwner authorizes the owner of the field the booking sits on.
func (s *BookingService) byOwner(ctx context.Context, ownerID uint64) func(*repository.Booking) error {
	return func(b *repository.Booking) error {
		owner, err := s.Bookings.OwnerOfBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if owner != ownerID {
			return repository.ErrForbidden
		}
		return nil
	}
}

func (s *BookingService) confirm(ctx context.Context, bookingID uint64, authorize func(*repository.Booking) error) error {
	tx, err := s.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	b, err := s.Bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if err := authorize(b); err != nil {
		return err
	}
	if b.PrimaryBookingID != nil {
		return &engine.ValidationError{Reason: "confirm the primary booking of this transaction"}
	}
	graph := []*repository.Booking{b}
	linked, err := s.Bookings.LinkedTx(ctx, tx, b.ID)
	if err != nil {
		return err
	}
	graph = append(graph, linked...)
	for _, g := range graph {
		if err := engine.Transition(engine.BookingStatus(g.Status), engine.StatusConfirmed); err != nil {
			return err
		}
	}
	for _, g := range graph {
		if err := s.Bookings.UpdateStatusTx(ctx, tx, g.ID, string(engine.StatusConfirmed)); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	// Events ride after the commit and never fail the booking.
	if detail, derr := s.Bookings.GetDetailForUser(ctx, b.ID, b.UserID); derr == nil {
		_ = PublishBookingConfirmed(ctx, q.BookingConfirmedEvent{
			BookingID:    detail.ID,
			Code:         detail.Code,
			UserID:       b.UserID,
			FieldName:    detail.FieldName,
			SubFieldName: detail.SubFieldName,
			BookingDate:  detail.BookingDate,
			Slots:        slotPayloads(detail.Slots),
			TotalCents:   detail.TotalCents,
			ConfirmedAt:  s.now().Format(time.RFC3339),
		})
	} else {
		log.Printf("booking-service: load detail for confirm event failed: %v", derr)
	}
	return nil
}

// CancelBooking cancels a booking.  Cancelling a primary booking cascades
// to its linked bookings in the same transaction; a linked booking can only
// be cancelled through its primary.  Cancelled bookings release their slot
// rows so the units become reservable again.
func (s *BookingService) CancelBooking(ctx context.Context, userID, bookingID uint64) error {
	return s.cancel(ctx, bookingID, byCustomer(userID))
}

// OwnerCancelBooking lets the field owner cancel a booking on one of their
// sub-fields, for example when the venue becomes unusable.
func (s *BookingService) OwnerCancelBooking(ctx context.Context, ownerID, bookingID uint64) error {
	return s.cancel(ctx, bookingID, s.byOwner(ctx, ownerID))
}

func (s *BookingService) cancel(ctx context.Context, bookingID uint64, authorize func(*repository.Booking) error) error {
	tx, err := s.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	b, err := s.Bookings.GetForUpdateTx(ctx, tx, bookingID)
	if err != nil {
		return err
	}
	if err := authorize(b); err != nil {
		return err
	}
	if b.PrimaryBookingID != nil {
		return &engine.ValidationError{Reason: "cancel the primary booking of this transaction"}
	}
	graph := []*repository.Booking{b}
	linked, err := s.Bookings.LinkedTx(ctx, tx, b.ID)
	if err != nil {
		return err
	}
	graph = append(graph, linked...)
	ids := make([]uint64, 0, len(graph))
	for _, g := range graph {
		if err := engine.Transition(engine.BookingStatus(g.Status), engine.StatusCancelled); err != nil {
			return err
		}
		ids = append(ids, g.ID)
	}
	for _, id := range ids {
		if err := s.Bookings.UpdateStatusTx(ctx, tx, id, string(engine.StatusCancelled)); err != nil {
			return err
		}
	}
	if err := s.Bookings.DeleteSlotsTx(ctx, tx, ids); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	var linkedIDs []uint64
	if len(ids) > 1 {
		linkedIDs = ids[1:]
	}
	_ = PublishBookingCancelled(ctx, q.BookingCancelledEvent{
		BookingID:   b.ID,
		Code:        b.Code,
		UserID:      b.UserID,
		LinkedIDs:   linkedIDs,
		CancelledAt: s.now().Format(time.RFC3339),
	})
	return nil
}

// RescheduleInput carries a reschedule request for a single booking.
type RescheduleInput struct {
	UserID    uint64
	BookingID uint64
	Date      time.Time
	Ranges    []engine.TimeRange
}

// RescheduleBooking moves a pending, unpaid booking to a new date or slot
// set.  Slots are repriced against current rules, attached add-ons keep
// contributing their stored prices, and the stored promotion, if any, is
// re-evaluated against the new subtotal; an attached promotion that no
// longer qualifies simply stops discounting.  Confirmed or paid bookings
// cannot be rescheduled.
func (s *BookingService) RescheduleBooking(ctx context.Context, in RescheduleInput) (*BookingSummary, error) {
	date := engine.DateOf(in.Date)
	if date.Before(engine.DateOf(s.now())) {
		return nil, ErrPastDate
	}
	tx, err := s.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	b, err := s.Bookings.GetForUpdateTx(ctx, tx, in.BookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != in.UserID {
		return nil, repository.ErrForbidden
	}
	if !engine.CanModify(engine.BookingStatus(b.Status), engine.PaymentStatus(b.PaymentStatus)) {
		return nil, &engine.TransitionError{From: engine.BookingStatus(b.Status), To: engine.StatusPending}
	}
	sub, err := s.Fields.GetActiveSubFieldByID(ctx, b.SubFieldID)
	if err != nil {
		return nil, err
	}
	window := engine.TimeRange{StartMin: sub.OpenMin, EndMin: sub.CloseMin}
	ranges, err := engine.NormalizeRanges(in.Ranges, window)
	if err != nil {
		return nil, err
	}
	existing, err := s.Bookings.ListActiveSlotsTx(ctx, tx, sub.ID, date)
	if err != nil {
		return nil, err
	}
	// The booking's own current slots never conflict with its new ones.
	if conflicts := engine.CheckAvailability(sub.ID, date, ranges, toBooked(existing), b.ID); len(conflicts) > 0 {
		return nil, &engine.ConflictError{Conflicts: conflicts}
	}
	index, err := s.ruleIndexFor(ctx, sub)
	if err != nil {
		return nil, err
	}
	slots, subtotal := index.Quote(date, ranges)

	// Add-on rows ride along unchanged; their stored prices stay part of
	// the subtotal the promotion is judged against.
	addOnTotal, err := s.Bookings.AddOnTotalTx(ctx, tx, b.ID)
	if err != nil {
		return nil, err
	}
	subtotal += addOnTotal

	var discount int64
	if b.PromotionID != nil {
		promo, err := s.Promotions.GetByID(ctx, *b.PromotionID)
		if err != nil && !errors.Is(err, repository.ErrPromotionNotFound) {
			return nil, err
		}
		if promo != nil {
			if d, perr := engine.EvaluatePromotion(toEnginePromo(promo), subtotal, s.now()); perr == nil {
				discount = d
			}
		}
	}

	if err := s.Bookings.DeleteSlotsTx(ctx, tx, []uint64{b.ID}); err != nil {
		return nil, err
	}
	slotRows := make([]repository.BookingSlot, 0, len(slots))
	for _, sp := range slots {
		slotRows = append(slotRows, repository.BookingSlot{
			BookingID:   b.ID,
			SubFieldID:  sub.ID,
			BookingDate: date,
			StartMin:    sp.Unit.StartMin,
			EndMin:      sp.Unit.EndMin,
			PriceCents:  sp.PriceCents,
		})
	}
	if err := s.Bookings.CreateSlotsBulkTx(ctx, tx, slotRows); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, &engine.ConflictError{Conflicts: requestedAsConflicts(sub.ID, date, ranges)}
		}
		return nil, err
	}
	if err := s.Bookings.UpdateQuoteTx(ctx, tx, b.ID, date, subtotal, discount, subtotal-discount); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, &engine.ConflictError{Conflicts: requestedAsConflicts(sub.ID, date, ranges)}
		}
		return nil, err
	}
	committed = true
	return &BookingSummary{
		ID:            b.ID,
		Code:          b.Code,
		SubFieldID:    sub.ID,
		Slots:         slots,
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TotalCents:    subtotal - discount,
		Status:        string(engine.StatusPending),
	}, nil
}

// Quote prices the requested ranges for one sub-field without reserving
// anything.
func (s *BookingService) Quote(ctx context.Context, subFieldID uint64, date time.Time, ranges []engine.TimeRange) ([]engine.SlotPrice, int64, error) {
	sub, err := s.Fields.GetActiveSubFieldByID(ctx, subFieldID)
	if err != nil {
		return nil, 0, err
	}
	window := engine.TimeRange{StartMin: sub.OpenMin, EndMin: sub.CloseMin}
	normalized, err := engine.NormalizeRanges(ranges, window)
	if err != nil {
		return nil, 0, err
	}
	index, err := s.ruleIndexFor(ctx, sub)
	if err != nil {
		return nil, 0, err
	}
	slots, subtotal := index.Quote(engine.DateOf(date), normalized)
	return slots, subtotal, nil
}

// AvailabilityView is the public availability answer for one sub-field and
// date: the operating window and the intervals already taken.
type AvailabilityView struct {
	SubFieldID uint64             `json:"sub_field_id"`
	Date       string             `json:"date"`
	OpenMin    int                `json:"open_min"`
	CloseMin   int                `json:"close_min"`
	Booked     []engine.TimeRange `json:"booked"`
}

// Availability reports the taken intervals of one sub-field on a date.
func (s *BookingService) Availability(ctx context.Context, subFieldID uint64, date time.Time) (*AvailabilityView, error) {
	sub, err := s.Fields.GetActiveSubFieldByID(ctx, subFieldID)
	if err != nil {
		return nil, err
	}
	date = engine.DateOf(date)
	rows, err := s.Bookings.ListActiveSlots(ctx, sub.ID, date)
	if err != nil {
		return nil, err
	}
	booked := make([]engine.TimeRange, 0, len(rows))
	for _, r := range rows {
		booked = append(booked, engine.TimeRange{StartMin: r.StartMin, EndMin: r.EndMin})
	}
	return &AvailabilityView{
		SubFieldID: sub.ID,
		Date:       date.Format("2006-01-02"),
		OpenMin:    sub.OpenMin,
		CloseMin:   sub.CloseMin,
		Booked:     booked,
	}, nil
}

// CompleteElapsed moves every confirmed booking whose last slot has ended
// to COMPLETED.  Each booking commits independently so one failure does not
// stall the sweep.  Returns the number of bookings completed.
func (s *BookingService) CompleteElapsed(ctx context.Context) (int, error) {
	ids, err := s.Bookings.ListElapsedConfirmed(ctx, s.now())
	if err != nil {
		return 0, err
	}
	done := 0
	for _, id := range ids {
		if err := s.completeOne(ctx, id); err != nil {
			log.Printf("booking-service: complete booking %d failed: %v", id, err)
			continue
		}
		done++
	}
	return done, nil
}

func (s *BookingService) completeOne(ctx context.Context, id uint64) error {
	tx, err := s.Bookings.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	b, err := s.Bookings.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		return err
	}
	// Another sweeper or a concurrent cancel may have moved it already.
	if err := engine.Transition(engine.BookingStatus(b.Status), engine.StatusCompleted); err != nil {
		if errors.Is(err, engine.ErrIllegalTransition) {
			return nil
		}
		return err
	}
	if err := s.Bookings.UpdateStatusTx(ctx, tx, id, string(engine.StatusCompleted)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// SendReminders publishes a reminder event for every active booking on the
// given date that has not been reminded yet.  The reminder flag is claimed
// with a guarded update before publishing, so concurrent workers send at
// most one reminder per booking.  Returns the number of reminders sent.
func (s *BookingService) SendReminders(ctx context.Context, date time.Time) (int, error) {
	candidates, err := s.Bookings.ListReminderCandidates(ctx, engine.DateOf(date))
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, b := range candidates {
		claimed, err := s.Bookings.ClaimReminder(ctx, b.ID)
		if err != nil {
			log.Printf("booking-service: claim reminder for booking %d failed: %v", b.ID, err)
			continue
		}
		if !claimed {
			continue
		}
		detail, err := s.Bookings.GetDetailForUser(ctx, b.ID, b.UserID)
		if err != nil {
			log.Printf("booking-service: load detail for reminder %d failed: %v", b.ID, err)
			continue
		}
		_ = PublishBookingReminder(ctx, q.BookingReminderEvent{
			BookingID:    detail.ID,
			Code:         detail.Code,
			UserID:       b.UserID,
			FieldName:    detail.FieldName,
			SubFieldName: detail.SubFieldName,
			BookingDate:  detail.BookingDate,
			Slots:        slotPayloads(detail.Slots),
		})
		sent++
	}
	return sent, nil
}

func slotPayloads(slots []repository.SlotView) []q.SlotPayload {
	out := make([]q.SlotPayload, 0, len(slots))
	for _, s := range slots {
		out = append(out, q.SlotPayload{Start: engine.FormatClock(s.StartMin), End: engine.FormatClock(s.EndMin)})
	}
	return out
}

// MarkPaid records a successful payment report for a booking owned by the
// user.
func (s *BookingService) MarkPaid(ctx context.Context, userID, bookingID uint64) error {
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return err
	}
	if b.UserID != userID {
		return repository.ErrForbidden
	}
	if engine.BookingStatus(b.Status) == engine.StatusCancelled {
		return &engine.ValidationError{Reason: "cannot pay a cancelled booking"}
	}
	return s.Bookings.SetPaymentStatus(ctx, bookingID, string(engine.PaymentPaid))
}
