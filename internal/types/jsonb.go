package types

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Compile-time interface assertions. All embedded-document types must
// implement both sql.Scanner and driver.Valuer so pgx can round-trip them
// through JSONB columns. Scan is on pointer receivers; Value on value
// receivers.
var (
	_ sql.Scanner   = (*Itinerary)(nil)
	_ driver.Valuer = Itinerary(nil)
	_ sql.Scanner   = (*CheckHistory)(nil)
	_ driver.Valuer = CheckHistory(nil)
	_ sql.Scanner   = (*AlertList)(nil)
	_ driver.Valuer = AlertList(nil)
	_ sql.Scanner   = (*DeltaPlanList)(nil)
	_ driver.Valuer = DeltaPlanList(nil)
	_ sql.Scanner   = (*NotificationLog)(nil)
	_ driver.Valuer = NotificationLog(nil)
	_ sql.Scanner   = (*NotificationPreferences)(nil)
	_ driver.Valuer = NotificationPreferences{}
)

// scanJSONB scans a JSONB database value into a Go pointer, handling nil,
// []byte, and string representations.
func scanJSONB(dest any, value any) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jsonb: unsupported scan type %T", value)
	}
	return json.Unmarshal(data, dest)
}

// valueJSONB converts a Go value to a JSONB-compatible driver.Value.
func valueJSONB(v any) (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

// Scan implements sql.Scanner for Itinerary.
func (i *Itinerary) Scan(value any) error { return scanJSONB(i, value) }

// Value implements driver.Valuer for Itinerary.
func (i Itinerary) Value() (driver.Value, error) { return valueJSONB(i) }

// Scan implements sql.Scanner for CheckHistory.
func (h *CheckHistory) Scan(value any) error { return scanJSONB(h, value) }

// Value implements driver.Valuer for CheckHistory.
func (h CheckHistory) Value() (driver.Value, error) { return valueJSONB(h) }

// Scan implements sql.Scanner for AlertList.
func (l *AlertList) Scan(value any) error { return scanJSONB(l, value) }

// Value implements driver.Valuer for AlertList.
func (l AlertList) Value() (driver.Value, error) { return valueJSONB(l) }

// Scan implements sql.Scanner for DeltaPlanList.
func (l *DeltaPlanList) Scan(value any) error { return scanJSONB(l, value) }

// Value implements driver.Valuer for DeltaPlanList.
func (l DeltaPlanList) Value() (driver.Value, error) { return valueJSONB(l) }

// Scan implements sql.Scanner for NotificationLog.
func (l *NotificationLog) Scan(value any) error { return scanJSONB(l, value) }

// Value implements driver.Valuer for NotificationLog.
func (l NotificationLog) Value() (driver.Value, error) { return valueJSONB(l) }

// Scan implements sql.Scanner for NotificationPreferences.
func (p *NotificationPreferences) Scan(value any) error { return scanJSONB(p, value) }

// Value implements driver.Valuer for NotificationPreferences.
func (p NotificationPreferences) Value() (driver.Value, error) { return valueJSONB(p) }
