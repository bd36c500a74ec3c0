package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Order is a stored sale. The service never writes orders.
type Order struct {
	ID         ID        `json:"id"`
	CustomerID ID        `json:"cliente_id"`
	Customer   string    `json:"cliente"`
	Date       Timestamp `json:"fecha"`
	Timestamp  Timestamp `json:"timestamp"`
}

// When returns the order date, preferring "fecha" over "timestamp".
// The second value is false when neither field holds a parseable date.
func (o Order) When() (time.Time, bool) {
	if !o.Date.IsZero() {
		return o.Date.Time, true
	}
	if !o.Timestamp.IsZero() {
		return o.Timestamp.Time, true
	}
	return time.Time{}, false
}

// BelongsTo reports whether the order references the customer, either by id
// or by the customer name embedded in the order.
func (o Order) BelongsTo(c Customer) bool {
	if o.CustomerID != "" && o.CustomerID == c.ID {
		return true
	}
	name := strings.TrimSpace(c.Name)
	return name != "" && o.Customer != "" && strings.Contains(o.Customer, name)
}

// Timestamp is a date written by the host application, either as text or as
// unix milliseconds. Values that cannot be parsed decode to the zero time.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"02/01/2006",
}

// UnmarshalJSON implements json.Unmarshaler.
func (ts *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	ts.Time = time.Time{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] != '"' {
		millis, err := strconv.ParseFloat(string(data), 64)
		if err == nil {
			ts.Time = time.UnixMilli(int64(millis))
		}
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}
	ts.Time = ParseTime(raw)
	return nil
}

// ParseTime parses the date formats the host application is known to write.
func ParseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed
		}
	}
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(millis)
	}
	return time.Time{}
}
