package dag

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/spf13/cast"
)

// Data is a convenience payload for steps: a plain map with typed
// accessors. The runner treats payloads as opaque and never requires it.
type Data map[string]any

// Get retrieves a raw value by key.
func (d Data) Get(key string) (any, bool) {
	v, ok := d[key]
	return v, ok
}

// GetString retrieves a value coerced to string.
func (d Data) GetString(key string) (string, bool) {
	v, ok := d.Get(key)
	return cast.ToString(v), ok
}

// GetInt retrieves a value coerced to int.
func (d Data) GetInt(key string) (int, bool) {
	v, ok := d.Get(key)
	return cast.ToInt(v), ok
}

// GetBool retrieves a value coerced to bool.
func (d Data) GetBool(key string) (bool, bool) {
	v, ok := d.Get(key)
	return cast.ToBool(v), ok
}

// GetFloat64 retrieves a value coerced to float64.
func (d Data) GetFloat64(key string) (float64, bool) {
	v, ok := d.Get(key)
	return cast.ToFloat64(v), ok
}

// GetStringSlice retrieves a value coerced to a string slice.
func (d Data) GetStringSlice(key string) ([]string, bool) {
	v, ok := d.Get(key)
	return cast.ToStringSlice(v), ok
}

// GetStruct decodes a stored value into s via a JSON round trip.
func (d Data) GetStruct(key string, s any) error {
	v, ok := d.Get(key)
	if !ok {
		return errors.NotFoundf("key %q", key)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Annotatef(err, "key %q", key)
	}
	return json.Unmarshal(b, s)
}

// Set stores a value under key.
func (d Data) Set(key string, value any) {
	d[key] = value
}

// With returns a copy with key set, leaving the receiver untouched. Steps
// that hand ownership forward use it to avoid aliasing surprises.
func (d Data) With(key string, value any) Data {
	out := d.Clone()
	out[key] = value
	return out
}

// Clone returns a shallow copy.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Merge copies every entry of src into d, last write wins.
func (d Data) Merge(src Data) {
	for k, v := range src {
		d[k] = v
	}
}
