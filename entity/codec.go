package entity

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// Marshal serializes an entity payload. Enum types serialize by name
// through their MarshalText methods.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes a payload into v.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Decode builds an entity from a stored row: the payload is decoded and the
// surrogate key injected.
func Decode[T Entity](m *Mapping[T], key int64, payload []byte) (T, error) {
	e := m.New()
	if err := Unmarshal(payload, e); err != nil {
		var zero T
		return zero, fmt.Errorf("entity: decode %s %d: %w", m.Name, key, err)
	}
	e.SetEntityID(key)
	return e, nil
}

// Literal layouts for temporal values.
const (
	SortableLayout       = "2006-01-02T15:04:05"
	DateLayout           = "2006-01-02"
	DateTimeOffsetLayout = "2006-01-02T15:04:05.0000000-07:00"
)

// Date is a calendar date without a time of day.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	y, mo, d := t.Date()
	return Date{time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Date) UnmarshalText(b []byte) error {
	t, err := time.Parse(DateLayout, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// DateTimeOffset is an instant that keeps its original UTC offset.
type DateTimeOffset struct {
	time.Time
}

func (o DateTimeOffset) String() string { return o.Format(DateTimeOffsetLayout) }

func (o DateTimeOffset) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *DateTimeOffset) UnmarshalText(b []byte) error {
	t, err := time.Parse(time.RFC3339Nano, string(b))
	if err != nil {
		return err
	}
	o.Time = t
	return nil
}
