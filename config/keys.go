package config

import (
	"reflect"
	"strings"
	"time"
)

var timeType = reflect.TypeFor[time.Time]()

// keySet holds the configuration keys a target struct can receive, derived
// from its mapstructure tags. Environment variables are bound only to
// these keys, so an unrelated variable cannot replace a scalar with a map.
type keySet struct {
	leaves map[string]bool
	// maps are keys of map fields; a single further segment is accepted.
	maps map[string]bool
}

// keysOf returns the key set of cfg, or nil when cfg is not a struct.
func keysOf(cfg any) *keySet {
	t := reflect.TypeOf(cfg)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	ks := &keySet{leaves: make(map[string]bool), maps: make(map[string]bool)}
	ks.collect(t, "")
	return ks
}

func (ks *keySet) collect(t reflect.Type, prefix string) {
	for i := range t.NumField() {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(f.Tag.Get("mapstructure"), ",")
		if name == "-" {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if strings.Contains(opts, "squash") && ft.Kind() == reflect.Struct {
			ks.collect(ft, prefix)
			continue
		}
		if name == "" {
			name = f.Name
		}
		key := strings.ToLower(name)
		if prefix != "" {
			key = prefix + "." + key
		}

		switch {
		case ft.Kind() == reflect.Struct && ft != timeType:
			ks.collect(ft, key)
		case ft.Kind() == reflect.Map:
			ks.maps[key] = true
		default:
			ks.leaves[key] = true
		}
	}
}

// accepts reports whether key addresses a field of the target. A nil set
// accepts every key.
func (ks *keySet) accepts(key string) bool {
	if ks == nil || ks.leaves[key] {
		return true
	}
	if i := strings.LastIndex(key, "."); i > 0 {
		return ks.maps[key[:i]]
	}
	return false
}
