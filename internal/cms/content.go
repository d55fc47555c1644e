package cms

import (
	"maps"
	"sort"

	"folio/internal/txt"
)

// Data is a raw field map as read from or written to a content file.
type Data map[string]string

// normalize returns a copy of d with canonical (lowercase) keys.
func (d Data) normalize() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[txt.NormalizeKey(k)] = v
	}
	return out
}

// Content is the resolved field data of one model in one language.
// Field names are case-insensitive.
type Content struct {
	data Data
}

// NewContent wraps data, normalizing its keys.
func NewContent(data Data) *Content {
	return &Content{data: data.normalize()}
}

// Get returns the value of a field, or "" if it is not set.
func (c *Content) Get(key string) string {
	return c.data[txt.NormalizeKey(key)]
}

// Has reports whether a field is set to a non-empty value.
func (c *Content) Has(key string) bool {
	return c.data[txt.NormalizeKey(key)] != ""
}

// Keys returns the field names in sorted order.
func (c *Content) Keys() []string {
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Data returns a copy of the field map.
func (c *Content) Data() Data {
	return maps.Clone(c.data)
}

// Update returns new content. With overwrite the result is exactly data;
// otherwise data is merged over the existing fields, leaving fields not
// named in data untouched.
func (c *Content) Update(data Data, overwrite bool) *Content {
	if overwrite {
		return NewContent(data)
	}
	merged := c.Data()
	if merged == nil {
		merged = Data{}
	}
	for k, v := range data.normalize() {
		merged[k] = v
	}
	return &Content{data: merged}
}

// mergeData layers top over base; values in top win.
func mergeData(base, top Data) Data {
	out := make(Data, len(base)+len(top))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range top {
		out[k] = v
	}
	return out
}
