package model

// Metadata is an insertion-ordered mapping of string keys to structured
// values. Order is preserved so serialized forms round-trip the way the
// authoring tool wrote them.
type Metadata struct {
	keys   []string
	values map[string]any
}

// DescriptiveMetadataKeys are the per-node metadata keys carried through
// rendered documents, beyond the title and document id. List-valued
// fields (authors, keywords) are stored as a single delimited string.
var DescriptiveMetadataKeys = []string{
	"language",
	"license_url",
	"license_text",
	"summary",
	"created",
	"revised",
	"authors",
	"publishers",
	"copyright_holders",
	"keywords",
	"subjects",
}

// NewMetadata creates an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{values: make(map[string]any)}
}

// MetadataFromPairs creates a Metadata from alternating key/value pairs,
// preserving the given order. It panics on an odd number of arguments or a
// non-string key; it is intended for literal construction in authoring code
// and tests.
func MetadataFromPairs(pairs ...any) *Metadata {
	if len(pairs)%2 != 0 {
		panic("model: MetadataFromPairs requires an even number of arguments")
	}
	m := NewMetadata()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic("model: MetadataFromPairs keys must be strings")
		}
		m.Set(key, pairs[i+1])
	}
	return m
}

// Set stores a value under key. Setting an existing key replaces the value
// but keeps the key's original position.
func (m *Metadata) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value for key and whether it is present.
func (m *Metadata) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// GetString returns the value for key as a string, or "" when the key is
// absent or holds a non-string value.
func (m *Metadata) GetString(key string) string {
	if v, ok := m.values[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Keys returns the keys in insertion order.
func (m *Metadata) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Len returns the number of entries.
func (m *Metadata) Len() int {
	return len(m.keys)
}

// Title returns the value of the "title" key. Every node's metadata carries
// a title.
func (m *Metadata) Title() string {
	return m.GetString("title")
}

// Clone returns a shallow copy of the metadata.
func (m *Metadata) Clone() *Metadata {
	out := NewMetadata()
	for _, k := range m.keys {
		out.Set(k, m.values[k])
	}
	return out
}
