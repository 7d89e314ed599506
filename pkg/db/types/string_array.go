package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringArray persists an ordered list of strings as a JSON array (jsonb in Postgres).
type StringArray []string

func (a *StringArray) Scan(src any) error {
	if src == nil {
		*a = StringArray{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("StringArray: unsupported Scan type %T", src)
	}

	if len(raw) == 0 {
		*a = StringArray{}
		return nil
	}

	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StringArray: decode: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*a = StringArray(out)
	return nil
}

func (a StringArray) Value() (driver.Value, error) {
	if len(a) == 0 {
		return "[]", nil
	}
	encoded, err := json.Marshal([]string(a))
	if err != nil {
		return nil, fmt.Errorf("StringArray: encode: %w", err)
	}
	return string(encoded), nil
}
