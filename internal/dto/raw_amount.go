package dto

import (
	"bytes"
	"encoding/json"
)

// RawAmount accepts a JSON number, string or null and keeps its text form.
type RawAmount string

func (a *RawAmount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = RawAmount(s)
		return nil
	}

	*a = RawAmount(data)
	return nil
}
