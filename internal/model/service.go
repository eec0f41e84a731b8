package model

import "time"

// FieldService is a priced add-on a field offers alongside slot bookings,
// such as equipment rental or referee service.  Pricing is per unit with no
// time dependency.
//
// Fields:
//  ID         – primary key identifier.
//  FieldID    – field offering the service.
//  Name       – unique service name within the field.
//  PriceCents – unit price in cents.
//  IsActive   – whether the service can be added to new bookings.
//  CreatedAt  – creation timestamp.
//  UpdatedAt  – last update timestamp.
type FieldService struct {
	ID         uint64    // field_services.id
	FieldID    uint64    // field_services.field_id
	Name       string    // field_services.name
	PriceCents int64     // field_services.price_cents
	IsActive   bool      // field_services.is_active
	CreatedAt  time.Time // field_services.created_at
	UpdatedAt  time.Time // field_services.updated_at
}
