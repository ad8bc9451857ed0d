package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// RawRow is the source row preserved verbatim, stored as JSON text.
type RawRow map[string]string

// Value implements driver.Valuer.
func (r RawRow) Value() (driver.Value, error) {
	if r == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(r))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (r *RawRow) Scan(value any) error {
	if value == nil {
		*r = nil
		return nil
	}

	var b []byte
	switch v := value.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into RawRow", value)
	}

	*r = nil
	if len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, (*map[string]string)(r))
}
