// Package record is the field-keyed persistence format for machine state.
//
// A Record is written in one of several contexts. Readers must tolerate any
// field being absent: older saves and lighter contexts omit fields, and the
// getters substitute defaults instead of failing.
package record

import "encoding/json"

type Context int

const (
	// FullSave is the authoritative on-disk form.
	FullSave Context = iota + 1
	// NetworkSync is the lightweight form pushed to observers.
	NetworkSync
	// ItemDrop is what a removed machine keeps on its item.
	ItemDrop
)

func (c Context) String() string {
	switch c {
	case FullSave:
		return "FULL_SAVE"
	case NetworkSync:
		return "NETWORK_SYNC"
	case ItemDrop:
		return "ITEM_DROP"
	default:
		return "UNKNOWN"
	}
}

type Record map[string]json.RawMessage

func New() Record { return Record{} }

func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Set stores v under key. Values must be JSON-encodable; anything else is dropped.
func (r Record) Set(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	r[key] = b
}

// Decode unmarshals key into out and reports whether the field was present and well formed.
func (r Record) Decode(key string, out any) bool {
	raw, ok := r[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func (r Record) SetInt(key string, v int)       { r.Set(key, v) }
func (r Record) SetBool(key string, v bool)     { r.Set(key, v) }
func (r Record) SetString(key string, v string) { r.Set(key, v) }

func (r Record) Int(key string) int { return r.IntOr(key, 0) }

func (r Record) IntOr(key string, def int) int {
	var v int
	if !r.Decode(key, &v) {
		return def
	}
	return v
}

func (r Record) Bool(key string) bool {
	var v bool
	_ = r.Decode(key, &v)
	return v
}

func (r Record) String(key string) string {
	var v string
	_ = r.Decode(key, &v)
	return v
}

func (r Record) SetRecord(key string, sub Record) { r.Set(key, sub) }

// Sub returns the nested record under key, or an empty record.
func (r Record) Sub(key string) Record {
	sub := Record{}
	if !r.Decode(key, &sub) {
		return Record{}
	}
	return sub
}

func (r Record) Marshal() ([]byte, error) { return json.Marshal(r) }

func Unmarshal(b []byte) (Record, error) {
	r := Record{}
	if len(b) == 0 {
		return r, nil
	}
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return r, nil
}
