package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// rootSection groups the top-level scalar keys.
const rootSection = "general"

// Field is one settable config key. Keys and sections follow the json tags
// of Config; a `secret:"true"` tag marks values masked on display.
type Field struct {
	Key     string
	Section string
	Secret  bool

	index []int
	typ   reflect.Type
}

// Entry is a Field paired with its current value.
type Entry struct {
	Field
	Value any
}

// String renders the value the way `config set` accepts it back.
func (e Entry) String() string {
	if ss, ok := e.Value.([]string); ok {
		return strings.Join(ss, ",")
	}
	return fmt.Sprint(e.Value)
}

// Section is a named group of entries in declaration order.
type Section struct {
	Name    string
	Entries []Entry
}

var fields = sync.OnceValue(func() []Field {
	return walkFields(reflect.TypeFor[Config](), "", nil)
})

func walkFields(t reflect.Type, prefix string, index []int) []Field {
	var out []Field
	for i := range t.NumField() {
		sf := t.Field(i)
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		idx := append(slices.Clone(index), i)
		if sf.Type.Kind() == reflect.Struct {
			out = append(out, walkFields(sf.Type, key, idx)...)
			continue
		}
		section := rootSection
		if prefix != "" {
			section, _, _ = strings.Cut(prefix, ".")
		}
		out = append(out, Field{
			Key:     key,
			Section: section,
			Secret:  sf.Tag.Get("secret") == "true",
			index:   idx,
			typ:     sf.Type,
		})
	}
	return out
}

// Fields lists every config key in declaration order.
func Fields() []Field {
	return slices.Clone(fields())
}

func lookup(key string) (Field, bool) {
	i := slices.IndexFunc(fields(), func(f Field) bool { return f.Key == key })
	if i < 0 {
		return Field{}, false
	}
	return fields()[i], true
}

// IsSecretKey reports whether key is tagged secret.
func IsSecretKey(key string) bool {
	f, ok := lookup(key)
	return ok && f.Secret
}

// Entries returns every key of cfg with its value. Secret values are
// masked when mask is set.
func Entries(cfg *Config, mask bool) []Entry {
	root := reflect.ValueOf(cfg).Elem()
	out := make([]Entry, 0, len(fields()))
	for _, f := range fields() {
		v := root.FieldByIndex(f.index).Interface()
		if mask && f.Secret {
			v = maskSecret(v)
		}
		out = append(out, Entry{Field: f, Value: v})
	}
	return out
}

// GroupBySection splits entries into sections, keeping first-seen order.
func GroupBySection(entries []Entry) []Section {
	var out []Section
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].Name == e.Section {
			out[n-1].Entries = append(out[n-1].Entries, e)
			continue
		}
		out = append(out, Section{Name: e.Section, Entries: []Entry{e}})
	}
	return out
}

// maskSecret shows only the last 4 characters of a non-empty string.
func maskSecret(v any) any {
	s, ok := v.(string)
	if !ok || s == "" {
		return v
	}
	if len(s) <= 4 {
		return "***" + s
	}
	return "***" + s[len(s)-4:]
}

// assign parses raw according to f's type and stores it in cfg.
func assign(cfg *Config, f Field, raw string) error {
	dst := reflect.ValueOf(cfg).Elem().FieldByIndex(f.index)
	switch f.typ.Kind() {
	case reflect.String:
		dst.SetString(raw)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, f.typ.Bits())
		if err != nil {
			return fmt.Errorf("%s: expected an integer: %w", f.Key, err)
		}
		dst.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("%s: expected true or false: %w", f.Key, err)
		}
		dst.SetBool(b)
	case reflect.Slice:
		list, err := parseList(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Key, err)
		}
		dst.Set(reflect.ValueOf(list))
	default:
		return fmt.Errorf("%s: unsupported type %s", f.Key, f.typ)
	}
	return nil
}

// parseList accepts a JSON array or a comma-separated list.
func parseList(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "[") {
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("expected a JSON string array: %w", err)
		}
		return list, nil
	}
	list := []string{}
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list, nil
}
