package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Tags is a string list stored as a JSON column.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(t))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (t *Tags) Scan(src any) error {
	if src == nil {
		*t = nil
		return nil
	}
	var b []byte
	switch v := src.(type) {
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("tags: unsupported scan type %T", src)
	}
	if len(b) == 0 {
		*t = nil
		return nil
	}
	return json.Unmarshal(b, (*[]string)(t))
}
