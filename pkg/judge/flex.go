package judge

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// FlexString decodes JSON strings, numbers, booleans and nested values into text.
// The question generator is inconsistent about quoting ids and example payloads.
type FlexString string

// String returns the decoded text.
func (f FlexString) String() string {
	return string(f)
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}

	switch trimmed[0] {
	case '"':
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return err
		}
		*f = FlexString(text)
	case '[', '{':
		var compact bytes.Buffer
		if err := json.Compact(&compact, trimmed); err != nil {
			return err
		}
		*f = FlexString(compact.String())
	case 't', 'f':
		value, err := strconv.ParseBool(string(trimmed))
		if err != nil {
			return err
		}
		*f = FlexString(strconv.FormatBool(value))
	default:
		var number json.Number
		if err := json.Unmarshal(trimmed, &number); err != nil {
			return err
		}
		*f = FlexString(number.String())
	}

	return nil
}
