package models

import (
	"fmt"
	"time"
)

// Units accepted for chemical stock quantities.
const (
	UnitLiter      = "L"
	UnitMilliliter = "mL"
	UnitGram       = "g"
	UnitKilogram   = "kg"
	UnitPieces     = "units"
)

var validUnits = map[string]bool{
	UnitLiter:      true,
	UnitMilliliter: true,
	UnitGram:       true,
	UnitKilogram:   true,
	UnitPieces:     true,
}

// ChemicalRecord is a single inventory entry. It is treated as an immutable
// value; equality is structural.
type ChemicalRecord struct {
	ProductName          string  `json:"product_name" bson:"product_name"`
	CASNumber            string  `json:"cas_number" bson:"cas_number"`
	ManufacturerName     string  `json:"manufacturer_name" bson:"manufacturer_name"`
	CurrentStockQuantity float64 `json:"current_stock_quantity" bson:"current_stock_quantity"`
	Unit                 string  `json:"unit" bson:"unit"`
	Category             string  `json:"category,omitempty" bson:"category,omitempty"`
	StorageLocation      string  `json:"storage_location,omitempty" bson:"storage_location,omitempty"`
	ExpiryDate           string  `json:"expiry_date,omitempty" bson:"expiry_date,omitempty"`
}

// Validate checks the record against the wire schema. Decoding fails closed:
// a record missing required fields is rejected instead of defaulting.
func (r ChemicalRecord) Validate() error {
	switch {
	case r.ProductName == "":
		return fmt.Errorf("%w: product_name is required", ErrParse)
	case r.CASNumber == "":
		return fmt.Errorf("%w: cas_number is required", ErrParse)
	case r.ManufacturerName == "":
		return fmt.Errorf("%w: manufacturer_name is required", ErrParse)
	}

	if r.CurrentStockQuantity < 0 {
		return fmt.Errorf("%w: current_stock_quantity must not be negative", ErrParse)
	}

	if r.Unit != "" && !validUnits[r.Unit] {
		return fmt.Errorf("%w: unknown unit %q", ErrParse, r.Unit)
	}

	return nil
}

// CacheEntry is the last-known-good snapshot of remotely fetched inventory.
// Timestamp is the instant of the last successful remote fetch, never a
// local-write time.
type CacheEntry struct {
	Records   []ChemicalRecord
	Timestamp time.Time
}

// PendingItem is a locally created record awaiting upload. ID is a stable
// client-generated identifier so the remote side can deduplicate retried
// submissions.
type PendingItem struct {
	ID       string         `json:"id" bson:"_id"`
	Record   ChemicalRecord `json:"chemical" bson:"chemical"`
	QueuedAt time.Time      `json:"timestamp" bson:"timestamp"`
}

// Preference keys stored in the settings region.
const (
	SettingDarkMode = "dark_mode"
	SettingLastSync = "last_sync"
)
