package card

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Identity is a raw card reference as observed in the Arena log. Zero numeric
// ids and empty strings mean the field was not present.
type Identity struct {
	MtgaID int    `json:"mtgaId,omitempty"`
	GrpID  int    `json:"grpId,omitempty"`
	Name   string `json:"name,omitempty"`
	Set    string `json:"set,omitempty"`
}

// Key is the lookup key derived from an Identity. Every downstream component
// indexes cards by Key.
type Key string

const (
	prefixMtga    = "mtga"
	prefixGrp     = "grp"
	prefixName    = "name"
	prefixUnknown = "unknown"
)

// Key derives the deterministic lookup key. Priority: non-zero MtgaID, then
// non-zero GrpID, then name and set, then the serialized identity.
func (id Identity) Key() Key {
	switch {
	case id.MtgaID != 0:
		return Key(prefixMtga + ":" + strconv.Itoa(id.MtgaID))
	case id.GrpID != 0:
		return Key(prefixGrp + ":" + strconv.Itoa(id.GrpID))
	case id.Name != "":
		return Key(prefixName + ":" + id.Name + "|" + id.Set)
	default:
		raw, err := json.Marshal(id)
		if err != nil {
			raw = []byte("{}")
		}
		return Key(prefixUnknown + ":" + string(raw))
	}
}

// Queryable reports whether the identity carries anything a metadata provider
// can look up.
func (id Identity) Queryable() bool {
	return id.MtgaID != 0 || id.GrpID != 0 || strings.TrimSpace(id.Name) != ""
}

// Prefix returns the key's scheme ("mtga", "grp", "name" or "unknown").
func (k Key) Prefix() string {
	prefix, _, ok := strings.Cut(string(k), ":")
	if !ok {
		return ""
	}
	return prefix
}

// Value returns everything after the scheme separator.
func (k Key) Value() string {
	_, value, _ := strings.Cut(string(k), ":")
	return value
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// Keys maps identities to keys, preserving order and duplicates.
func Keys(ids []Identity) []Key {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]Key, len(ids))
	for i, id := range ids {
		keys[i] = id.Key()
	}
	return keys
}
