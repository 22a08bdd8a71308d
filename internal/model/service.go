package model

// Service is a bookable salon treatment.  Services are reference data:
// seeded once when the catalogue is empty and read-only afterwards.
//
// Fields:
//  ID              – UUID string.
//  Name            – display name.
//  DurationMinutes – expected slot length, positive.
//  PriceCents      – price in cents, non-negative.
//  Description     – optional free text.
type Service struct {
    ID              string `json:"id" bson:"_id"`
    Name            string `json:"name" bson:"name"`
    DurationMinutes int    `json:"durationMinutes" bson:"durationMinutes"`
    PriceCents      int    `json:"priceCents" bson:"priceCents"`
    Description     string `json:"description" bson:"description,omitempty"`
}
