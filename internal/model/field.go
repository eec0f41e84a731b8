package model

import "time"

// Field represents a sports venue published by an owner.  A field is a
// grouping unit only: customers book its sub-fields, never the field itself.
// The operating window bounds the windows of every sub-field inside it.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user ID of the owning account.
//  Name      – unique field name per owner.
//  Address   – street address shown to customers.
//  OpenMin   – opening time as minutes from midnight (slot-aligned).
//  CloseMin  – closing time as minutes from midnight (slot-aligned).
//  IsActive  – logical retirement flag; fields are never hard-deleted
//              while bookings reference their sub-fields.
//  CreatedAt – creation timestamp.
//  UpdatedAt – last update timestamp.
type Field struct {
	ID        uint64    // fields.id
	OwnerID   uint64    // fields.owner_id
	Name      string    // fields.name
	Address   string    // fields.address
	OpenMin   int       // fields.open_min
	CloseMin  int       // fields.close_min
	IsActive  bool      // fields.is_active
	CreatedAt time.Time // fields.created_at
	UpdatedAt time.Time // fields.updated_at
}

// SubField is an independently bookable unit inside a field, for example
// "Pitch A" of a five-a-side complex.  Its operating window must lie within
// the parent field's window, an invariant enforced at write time.
//
// Fields:
//  ID                – primary key identifier.
//  FieldID           – parent field.
//  Name              – unique sub-field name within the field.
//  OpenMin           – opening time, minutes from midnight.
//  CloseMin          – closing time, minutes from midnight.
//  DefaultPriceCents – price per 30-minute slot when no pricing rule matches.
//  IsActive          – logical retirement flag.
//  CreatedAt         – creation timestamp.
//  UpdatedAt         – last update timestamp.
type SubField struct {
	ID                uint64    // sub_fields.id
	FieldID           uint64    // sub_fields.field_id
	Name              string    // sub_fields.name
	OpenMin           int       // sub_fields.open_min
	CloseMin          int       // sub_fields.close_min
	DefaultPriceCents int64     // sub_fields.default_price_cents
	IsActive          bool      // sub_fields.is_active
	CreatedAt         time.Time // sub_fields.created_at
	UpdatedAt         time.Time // sub_fields.updated_at
}
