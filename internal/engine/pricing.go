package engine

import (
	"fmt"
	"sort"
	"time"
)

// Rule is one pricing override: on the given weekday, every slot whose start
// falls inside Interval costs PriceCents instead of the sub-field default.
// Rules are stored one row per weekday+interval; the index groups them.
type Rule struct {
	Weekday    time.Weekday
	Interval   TimeRange
	PriceCents int64
}

// SlotPrice is the price of a single 30-minute unit inside a quote.
type SlotPrice struct {
	Unit       TimeRange `json:"unit"`
	PriceCents int64     `json:"price_cents"`
}

// AddOn is a priced facility service attached to a booking, independent of
// time.  Quantity times UnitPriceCents contributes to the subtotal.
type AddOn struct {
	ServiceID      uint64
	Quantity       int
	UnitPriceCents int64
}

// RuleIndex resolves the price of a slot for one sub-field.  Intervals are
// kept sorted per weekday so lookup is a binary search; the index is built
// once and is safe for concurrent readers.
type RuleIndex struct {
	defaultPrice int64
	byDay        [7][]Rule
}

// NewRuleIndex validates and indexes the pricing rules of one sub-field.
// Rules must be aligned to the slot grid and must not overlap another rule on
// the same weekday; violations are operator data bugs and are reported as
// configuration errors, not validation errors.
func NewRuleIndex(defaultPriceCents int64, rules []Rule) (*RuleIndex, error) {
	if defaultPriceCents < 0 {
		return nil, fmt.Errorf("%w: negative default price", ErrConfiguration)
	}
	ix := &RuleIndex{defaultPrice: defaultPriceCents}
	for _, r := range rules {
		if r.Weekday < 0 || r.Weekday > 6 {
			return nil, fmt.Errorf("%w: weekday %d out of range", ErrConfiguration, r.Weekday)
		}
		if err := r.Interval.Validate(); err != nil {
			return nil, fmt.Errorf("%w: rule interval %s: %v", ErrConfiguration, r.Interval, err)
		}
		if r.PriceCents < 0 {
			return nil, fmt.Errorf("%w: negative price for interval %s", ErrConfiguration, r.Interval)
		}
		ix.byDay[r.Weekday] = append(ix.byDay[r.Weekday], r)
	}
	for day := range ix.byDay {
		rs := ix.byDay[day]
		sort.Slice(rs, func(i, j int) bool { return rs[i].Interval.StartMin < rs[j].Interval.StartMin })
		for i := 1; i < len(rs); i++ {
			if rs[i-1].Interval.Overlaps(rs[i].Interval) {
				return nil, fmt.Errorf("%w: overlapping rules %s and %s on %s",
					ErrConfiguration, rs[i-1].Interval, rs[i].Interval, time.Weekday(day))
			}
		}
	}
	return ix, nil
}

// PriceAt returns the per-slot price for the unit starting at startMin on the
// given weekday.  A matching rule wins; otherwise the default applies.
func (ix *RuleIndex) PriceAt(weekday time.Weekday, startMin int) int64 {
	rs := ix.byDay[weekday]
	// first rule whose interval ends after the slot start
	i := sort.Search(len(rs), func(i int) bool { return rs[i].Interval.EndMin > startMin })
	if i < len(rs) && rs[i].Interval.StartMin <= startMin {
		return rs[i].PriceCents
	}
	return ix.defaultPrice
}

// Quote decomposes the requested ranges into slot units, prices each unit via
// the index for the date's weekday and returns the per-unit breakdown plus
// the exact subtotal.  All arithmetic is integer cents; nothing is rounded.
// Ranges are expected to be normalized (see NormalizeRanges) beforehand.
func (ix *RuleIndex) Quote(date time.Time, ranges []TimeRange) ([]SlotPrice, int64) {
	weekday := DateOf(date).Weekday()
	var lines []SlotPrice
	var subtotal int64
	for _, r := range ranges {
		for _, unit := range r.Units() {
			p := ix.PriceAt(weekday, unit.StartMin)
			lines = append(lines, SlotPrice{Unit: unit, PriceCents: p})
			subtotal += p
		}
	}
	return lines, subtotal
}

// AddOnTotal sums the add-on contributions.  Quantities below one are
// rejected by request validation before this point; a zero-quantity add-on
// contributes nothing.
func AddOnTotal(addOns []AddOn) int64 {
	var total int64
	for _, a := range addOns {
		total += int64(a.Quantity) * a.UnitPriceCents
	}
	return total
}
