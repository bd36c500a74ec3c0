package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MinAddressLength is the shortest address worth sending to a geocoding provider.
const MinAddressLength = 5

// ID identifies a customer or an order. The host application writes ids both
// as JSON numbers and as strings, so ids are kept and compared as text.
type ID string

// UnmarshalJSON accepts a string, a number or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Customer is a stored client record. Only the coordinate fields are ever written back.
type Customer struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address"`
	City     string `json:"city,omitempty"`
	Province string `json:"province,omitempty"`
	Lat      Degree `json:"lat,omitempty"`
	Lon      Degree `json:"lon,omitempty"`

	// Position is the index of the record in the stored collection. Ids are
	// owned by the host application and may be missing or repeated, so
	// write-backs address the record by position and check the id.
	Position int `json:"-"`
}

// Located reports whether the customer carries usable coordinates.
func (c Customer) Located() bool {
	return c.Lat != 0 && c.Lon != 0 && !c.Unresolvable()
}

// Unresolvable reports whether a previous lookup for the address found nothing.
func (c Customer) Unresolvable() bool {
	return c.Lat == SentinelCoordinate
}

// HasAddress reports whether the address is long enough to be geocoded.
func (c Customer) HasAddress() bool {
	return utf8.RuneCountInString(strings.TrimSpace(c.Address)) >= MinAddressLength
}

// Pending reports whether the customer still waits for a geocoding lookup.
func (c Customer) Pending() bool {
	return c.HasAddress() && !c.Located() && !c.Unresolvable()
}

// Listed reports whether the customer takes part in the map counts at all.
func (c Customer) Listed() bool {
	return strings.TrimSpace(c.Name) != "" || strings.TrimSpace(c.Address) != ""
}

// Coordinates returns the stored position of the customer.
func (c Customer) Coordinates() Coordinates {
	return Coordinates{Latitude: float64(c.Lat), Longitude: float64(c.Lon)}
}

// Degree is a stored coordinate axis. Records edited by hand sometimes hold
// the value as a string; anything unparseable decodes as absent.
type Degree float64

// UnmarshalJSON implements json.Unmarshaler.
func (d *Degree) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*d = 0
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if value, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Degree(value)
	}
	return nil
}
