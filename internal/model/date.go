package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

var dateType = reflect.TypeOf(Date{})

// IsDateType reports whether t is Date, for decoding errors raised by
// Date.UnmarshalJSON.
func IsDateType(t reflect.Type) bool { return t == dateType }

// Date is a calendar date serialized as YYYY-MM-DD. Incoming values may also
// carry a time part, which is dropped.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, RFC 3339 and YYYY-MM-DDTHH:MM:SS.
func ParseDate(s string) (Date, error) {
	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return NewDate(t), nil
		}
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

func (d Date) String() string { return d.Format(DateLayout) }

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	// a type error lets the decoder attach the JSON field name
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return &json.UnmarshalTypeError{Value: string(b), Type: dateType}
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return &json.UnmarshalTypeError{Value: "date " + s, Type: dateType}
	}
	*d = parsed
	return nil
}
