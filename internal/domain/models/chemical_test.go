package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChemicalRecordRoundTrip(t *testing.T) {
	record := ChemicalRecord{
		ProductName:          "Acetone",
		CASNumber:            "67-64-1",
		ManufacturerName:     "Sigma-Aldrich",
		CurrentStockQuantity: 5,
		Unit:                 UnitLiter,
		Category:             "Solvent",
		StorageLocation:      "Cabinet B",
		ExpiryDate:           "2027-01-31",
	}

	raw, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded ChemicalRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, record, decoded, "wire round trip must preserve the record")
}

func TestChemicalRecordWireFieldNames(t *testing.T) {
	raw, err := json.Marshal(ChemicalRecord{
		ProductName:          "Ethanol",
		CASNumber:            "64-17-5",
		ManufacturerName:     "Merck",
		CurrentStockQuantity: 250,
		Unit:                 UnitMilliliter,
	})
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))

	assert.Contains(t, fields, "product_name")
	assert.Contains(t, fields, "cas_number")
	assert.Contains(t, fields, "manufacturer_name")
	assert.Contains(t, fields, "current_stock_quantity")
	assert.Contains(t, fields, "unit")

	// Optional fields are omitted when absent, not emitted as empty strings.
	assert.NotContains(t, fields, "category")
	assert.NotContains(t, fields, "storage_location")
	assert.NotContains(t, fields, "expiry_date")
}

func TestChemicalRecordValidate(t *testing.T) {
	valid := ChemicalRecord{
		ProductName:          "Acetone",
		CASNumber:            "67-64-1",
		ManufacturerName:     "Sigma-Aldrich",
		CurrentStockQuantity: 5,
		Unit:                 UnitLiter,
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(r *ChemicalRecord)
	}{
		{"missing product name", func(r *ChemicalRecord) { r.ProductName = "" }},
		{"missing cas number", func(r *ChemicalRecord) { r.CASNumber = "" }},
		{"missing manufacturer", func(r *ChemicalRecord) { r.ManufacturerName = "" }},
		{"negative quantity", func(r *ChemicalRecord) { r.CurrentStockQuantity = -1 }},
		{"unknown unit", func(r *ChemicalRecord) { r.Unit = "barrels" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := valid
			tt.mutate(&record)

			err := record.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParse)
		})
	}
}
