package util

import "encoding/json"

// DecodeJSON decodes src into dst. src may be raw JSON ([]byte or string) or
// any JSON-marshalable value such as a map from a config file.
func DecodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
