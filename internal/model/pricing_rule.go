package model

import "time"

// PricingRule overrides a sub-field's default slot price on one weekday and
// time interval.  A rule set with several weekdays or intervals is stored as
// one row per (weekday, interval) pair; the engine groups and indexes them
// per sub-field.  Intervals for the same sub-field and weekday must not
// overlap and must be aligned to the 30-minute grid.
//
// Fields:
//  ID         – primary key identifier.
//  SubFieldID – sub-field the rule prices.
//  DayOfWeek  – 0 (Sunday) through 6 (Saturday), matching time.Weekday.
//  StartMin   – interval start, minutes from midnight.
//  EndMin     – interval end, minutes from midnight (half-open).
//  PriceCents – price per 30-minute slot inside the interval.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type PricingRule struct {
	ID         uint64    // pricing_rules.id
	SubFieldID uint64    // pricing_rules.sub_field_id
	DayOfWeek  int       // pricing_rules.day_of_week
	StartMin   int       // pricing_rules.start_min
	EndMin     int       // pricing_rules.end_min
	PriceCents int64     // pricing_rules.price_cents
	CreatedAt  time.Time // pricing_rules.created_at
	UpdatedAt  time.Time // pricing_rules.updated_at
}
