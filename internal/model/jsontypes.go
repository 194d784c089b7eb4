package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SectionMap holds the named text sections of a disclosure
type SectionMap map[string]string

// JSONArray holds an arbitrary JSON list such as attachments
type JSONArray []interface{}

// CompletenessList holds per-field evaluation results
type CompletenessList []Completeness

// AIModelList holds the ordered model entries of an AI configuration
type AIModelList []AIModel

func scanJSON(value interface{}, dst interface{}) error {
	if value == nil {
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported JSON column type %T", value)
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, dst)
}

func valueJSON(v interface{}) (driver.Value, error) {
	bytes, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(bytes), nil
}

func (m *SectionMap) Scan(value interface{}) error { return scanJSON(value, m) }

func (m SectionMap) Value() (driver.Value, error) { return valueJSON(m) }

func (a *JSONArray) Scan(value interface{}) error { return scanJSON(value, a) }

func (a JSONArray) Value() (driver.Value, error) { return valueJSON(a) }

func (l *CompletenessList) Scan(value interface{}) error { return scanJSON(value, l) }

func (l CompletenessList) Value() (driver.Value, error) { return valueJSON(l) }

func (l *AIModelList) Scan(value interface{}) error { return scanJSON(value, l) }

func (l AIModelList) Value() (driver.Value, error) { return valueJSON(l) }

// Clone returns an independent copy of the section map
func (m SectionMap) Clone() SectionMap {
	if m == nil {
		return nil
	}
	out := make(SectionMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Clone returns a deep copy of the array
func (a JSONArray) Clone() JSONArray {
	if a == nil {
		return nil
	}
	out := make(JSONArray, len(a))
	for i, v := range a {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []interface{}:
		return JSONArray(t).Clone()
	default:
		return v
	}
}
