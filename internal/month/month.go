// Package month provides the typed commission-month partition key.
package month

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidMonth = errors.New("invalid_commission_month")

// Month identifies one commission accrual period. It round-trips
// exactly with the persisted "YYYY-MM" form and orders numerically,
// so comparisons stay correct across year boundaries.
type Month struct {
	Year  int
	Month time.Month
}

// Of returns the commission month a posting date falls into.
func Of(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// Parse accepts the canonical "YYYY-MM" form.
func Parse(s string) (Month, error) {
	s = strings.TrimSpace(s)
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return Month{}, ErrInvalidMonth
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	mon, err := strconv.Atoi(parts[1])
	if err != nil {
		return Month{}, ErrInvalidMonth
	}
	m := Month{Year: year, Month: time.Month(mon)}
	if !m.Valid() {
		return Month{}, ErrInvalidMonth
	}
	return m, nil
}

// Valid reports whether the month is a usable partition key.
func (m Month) Valid() bool {
	return m.Year >= 2000 && m.Year <= 2100 && m.Month >= time.January && m.Month <= time.December
}

// IsZero reports whether the month is unset.
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Before orders months numerically.
func (m Month) Before(other Month) bool {
	if m.Year != other.Year {
		return m.Year < other.Year
	}
	return m.Month < other.Month
}

func (m Month) After(other Month) bool {
	return other.Before(m)
}

func (m Month) Equal(other Month) bool {
	return m.Year == other.Year && m.Month == other.Month
}

// Next returns the following commission month.
func (m Month) Next() Month {
	if m.Month == time.December {
		return Month{Year: m.Year + 1, Month: time.January}
	}
	return Month{Year: m.Year, Month: m.Month + 1}
}

// Prev returns the preceding commission month.
func (m Month) Prev() Month {
	if m.Month == time.January {
		return Month{Year: m.Year - 1, Month: time.December}
	}
	return Month{Year: m.Year, Month: m.Month - 1}
}

// Start returns midnight UTC on the first day of the month.
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Value persists the canonical string form.
func (m Month) Value() (driver.Value, error) {
	if m.IsZero() {
		return nil, nil
	}
	if !m.Valid() {
		return nil, ErrInvalidMonth
	}
	return m.String(), nil
}

// Scan reads the canonical string form back from the database.
func (m *Month) Scan(value any) error {
	if value == nil {
		*m = Month{}
		return nil
	}
	switch v := value.(type) {
	case string:
		parsed, err := Parse(v)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	case []byte:
		parsed, err := Parse(string(v))
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	default:
		return fmt.Errorf("month: cannot scan %T", value)
	}
}

// GormDataType keeps the column a plain text partition key.
func (Month) GormDataType() string { return "text" }

// MarshalJSON emits the canonical string form.
func (m Month) MarshalJSON() ([]byte, error) {
	if m.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(strconv.Quote(m.String())), nil
}

// UnmarshalJSON accepts the canonical string form.
func (m *Month) UnmarshalJSON(data []byte) error {
	s, err := strconv.Unquote(string(data))
	if err != nil {
		return ErrInvalidMonth
	}
	if s == "" {
		*m = Month{}
		return nil
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
