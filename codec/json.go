package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// JSON is stable and portable for typical structs, maps and slices. Item
// payload types containing funcs, channels or complex numbers are not
// supported; implement Codec for custom encodings (protobuf, msgpack, ...).
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the stable codec name stored in snapshot headers.
func (JSON) Name() string { return "json" }
