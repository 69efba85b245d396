package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"time"
	"unicode"
	"unsafe"

	"github.com/google/uuid"
)

// MaxReflectDepth bounds how far Reflect descends into nested values.
const MaxReflectDepth = 8

var (
	timeType = reflect.TypeOf(time.Time{})
	uuidType = reflect.TypeOf(uuid.UUID{})
)

// Reflect walks v and returns a JSON-safe tree of maps, slices and scalars.
// Struct fields are included whether or not they are exported, keyed by
// their lowerCamel name. Values deeper than maxDepth, values reached again
// through a pointer cycle, funcs and channels become nil.
func Reflect(v any, maxDepth int) any {
	w := &walker{maxDepth: maxDepth, active: make(map[uintptr]bool)}
	return w.walk(addressable(reflect.ValueOf(v)), 0)
}

type walker struct {
	maxDepth int
	active   map[uintptr]bool
}

func (w *walker) walk(v reflect.Value, depth int) any {
	if !v.IsValid() || depth > w.maxDepth {
		return nil
	}

	switch v.Type() {
	case timeType:
		if v.CanInterface() {
			return Millis(v.Interface().(time.Time))
		}
		if v.CanAddr() {
			// Unexported field: read it through its address.
			t := reflect.NewAt(timeType, unsafe.Pointer(v.UnsafeAddr())).Elem().Interface().(time.Time)
			return Millis(t)
		}
		return nil
	case uuidType:
		var id uuid.UUID
		for i := range id {
			id[i] = byte(v.Index(i).Uint())
		}
		return id.String()
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint()
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil
		}
		return f
	case reflect.String:
		return v.String()
	case reflect.Interface:
		if v.IsNil() {
			return nil
		}
		return w.walk(v.Elem(), depth)
	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if w.active[ptr] {
			return nil
		}
		w.active[ptr] = true
		defer delete(w.active, ptr)
		return w.walk(v.Elem(), depth)
	case reflect.Struct:
		return w.walkStruct(v, depth)
	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		ptr := v.Pointer()
		if w.active[ptr] {
			return nil
		}
		w.active[ptr] = true
		defer delete(w.active, ptr)
		return w.walkMap(v, depth)
	case reflect.Slice:
		if v.IsNil() {
			return nil
		}
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return base64.StdEncoding.EncodeToString(bytesOf(v))
		}
		return w.walkList(v, depth)
	case reflect.Array:
		return w.walkList(v, depth)
	}
	return nil
}

func (w *walker) walkStruct(v reflect.Value, depth int) map[string]any {
	t := v.Type()
	out := make(map[string]any, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		switch f.Type.Kind() {
		case reflect.Func, reflect.Chan, reflect.UnsafePointer:
			continue
		}
		out[uniqueKey(out, lowerCamel(f.Name))] = w.walk(v.Field(i), depth+1)
	}
	return out
}

// uniqueKey suffixes key with _2, _3, ... while it is already taken, so
// fields like ID and id both survive.
func uniqueKey(m map[string]any, key string) string {
	if _, taken := m[key]; !taken {
		return key
	}
	for n := 2; ; n++ {
		k := key + "_" + strconv.Itoa(n)
		if _, taken := m[k]; !taken {
			return k
		}
	}
}

// addressable returns an addressable copy of v so unexported struct fields
// below it can be read by address. Values that cannot be copied are
// returned as is.
func addressable(v reflect.Value) reflect.Value {
	if !v.IsValid() || v.CanAddr() || !v.CanInterface() {
		return v
	}
	c := reflect.New(v.Type()).Elem()
	c.Set(v)
	return c
}

func (w *walker) walkMap(v reflect.Value, depth int) map[string]any {
	out := make(map[string]any, v.Len())
	keys := v.MapKeys()
	sort.Slice(keys, func(i, j int) bool { return keyString(keys[i]) < keyString(keys[j]) })
	for _, k := range keys {
		out[keyString(k)] = w.walk(addressable(v.MapIndex(k)), depth+1)
	}
	return out
}

func (w *walker) walkList(v reflect.Value, depth int) []any {
	out := make([]any, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		out = append(out, w.walk(v.Index(i), depth+1))
	}
	return out
}

func keyString(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return fmt.Sprint(k.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return fmt.Sprint(k.Uint())
	case reflect.Bool:
		return fmt.Sprint(k.Bool())
	}
	return fmt.Sprint(k)
}

// bytesOf copies a []byte value without calling Interface, so it also
// works for unexported fields.
func bytesOf(v reflect.Value) []byte {
	out := make([]byte, v.Len())
	for i := range out {
		out[i] = byte(v.Index(i).Uint())
	}
	return out
}

// lowerCamel lowercases the leading initialism: ID -> id, URLPath -> urlPath,
// FileName -> fileName.
func lowerCamel(name string) string {
	r := []rune(name)
	n := 0
	for n < len(r) && unicode.IsUpper(r[n]) {
		n++
	}
	switch {
	case n == 0:
		return name
	case n == 1 || n == len(r):
	default:
		// The last upper rune starts the next word.
		n--
	}
	for i := 0; i < n; i++ {
		r[i] = unicode.ToLower(r[i])
	}
	return string(r)
}
