package db

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// JSONAny is a GORM column type for map[string]any stored as JSON text.
type JSONAny map[string]any

// Scan implements the sql.Scanner interface for JSONAny.
func (m *JSONAny) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case string:
		bytes = []byte(v)
	case []byte:
		bytes = v
	default:
		return fmt.Errorf("unsupported type for JSONAny: %T", value)
	}
	return json.Unmarshal(bytes, m)
}

// Value implements the driver.Valuer interface for JSONAny.
func (m JSONAny) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}
