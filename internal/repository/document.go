package repository

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/UnknownOlympus/mapa/internal/models"
)

// record is a stored element with every field kept verbatim, so that writing
// coordinates back does not drop fields owned by the host application.
type record map[string]json.RawMessage

// decodeList decodes a stored collection. Absent or malformed data is an empty list.
func decodeList[T any](raw []byte) ([]T, bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return []T{}, true
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return []T{}, false
	}
	if items == nil {
		items = []T{}
	}
	return items, true
}

// decodeCustomers decodes the stored customers and records their positions.
func decodeCustomers(raw []byte) ([]models.Customer, bool) {
	customers, ok := decodeList[models.Customer](raw)
	for i := range customers {
		customers[i].Position = i
	}
	return customers, ok
}

// patchCoordinates sets lat/lon on the record at the customer's position.
// The record there must still carry the customer's id; a missing id matches
// an empty one. Anything else means the collection changed since it was read.
func patchCoordinates(raw []byte, customer models.Customer, coords models.Coordinates) ([]byte, error) {
	records, ok := decodeList[record](raw)
	if !ok {
		return nil, fmt.Errorf("stored customers are not a JSON array of objects: %w", ErrCustomerNotFound)
	}

	pos := customer.Position
	if pos < 0 || pos >= len(records) || records[pos] == nil {
		return nil, fmt.Errorf("%w: %q at position %d", ErrCustomerNotFound, customer.ID, pos)
	}

	rec := records[pos]
	var recID models.ID
	if rawID, exists := rec["id"]; exists {
		if err := json.Unmarshal(rawID, &recID); err != nil {
			return nil, fmt.Errorf("%w: unreadable id at position %d", ErrCustomerNotFound, pos)
		}
	}
	if recID != customer.ID {
		return nil, fmt.Errorf("%w: %q at position %d", ErrCustomerNotFound, customer.ID, pos)
	}

	if err := setCoordinates(rec, coords); err != nil {
		return nil, err
	}
	return marshalRecords(records)
}

// resetCoordinates zeroes lat/lon on every record and reports how many were touched.
func resetCoordinates(raw []byte) ([]byte, int, error) {
	records, ok := decodeList[record](raw)
	if !ok || len(records) == 0 {
		return nil, 0, nil
	}

	touched := 0
	for _, rec := range records {
		if rec == nil {
			continue
		}
		if err := setCoordinates(rec, models.Coordinates{}); err != nil {
			return nil, 0, err
		}
		touched++
	}

	out, err := marshalRecords(records)
	if err != nil {
		return nil, 0, err
	}
	return out, touched, nil
}

func setCoordinates(rec record, coords models.Coordinates) error {
	lat, err := json.Marshal(coords.Latitude)
	if err != nil {
		return fmt.Errorf("failed to encode latitude: %w", err)
	}
	lon, err := json.Marshal(coords.Longitude)
	if err != nil {
		return fmt.Errorf("failed to encode longitude: %w", err)
	}
	rec["lat"] = lat
	rec["lon"] = lon
	return nil
}

func marshalRecords(records []record) ([]byte, error) {
	out, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode customers: %w", err)
	}
	return out, nil
}

// validateCollection checks that host-supplied data is a JSON array.
func validateCollection(raw []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAnArray, err)
	}
	if items == nil {
		return ErrNotAnArray
	}
	return nil
}
