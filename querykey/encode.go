package querykey

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Separator delimits encoded key segments.
const Separator = "::"

// Encode renders a Key into its deterministic string form. Equal keys always
// encode to equal strings, and the encoding of a builder key is a strict
// segment-prefix of the encoding of any key it covers, so string backends can
// implement prefix invalidation safely.
func Encode(key Key) string {
	if len(key) == 0 {
		return ""
	}
	parts := make([]string, 0, len(key))
	for _, segment := range key {
		parts = append(parts, encodeValue(segment))
	}
	return strings.Join(parts, Separator)
}

// HasPrefix reports whether an encoded key sits under an encoded prefix.
// Matching is segment-granular: "tasks::v1" covers "tasks::v1::list" but not
// "tasks2::v1".
func HasPrefix(encoded, prefix string) bool {
	if prefix == "" {
		return true
	}
	return encoded == prefix || strings.HasPrefix(encoded, prefix+Separator)
}

// encodeValue renders one segment deterministically based on its kind.
func encodeValue(v any) string {
	if v == nil {
		return "nil"
	}

	rv := reflect.ValueOf(v)
	rt := reflect.TypeOf(v)

	switch rt.Kind() {
	case reflect.Func:
		// Callables are rejected by Validate; encode by identity so a stray
		// one still produces a stable-ish key instead of a panic.
		return fmt.Sprintf("func:%p", v)
	case reflect.Ptr:
		if rv.IsNil() {
			return "nil"
		}
		return encodeValue(rv.Elem().Interface())
	case reflect.Slice:
		if rv.IsNil() {
			return "slice:nil"
		}
		return encodeSequence("slice", rv)
	case reflect.Array:
		return encodeSequence("array", rv)
	case reflect.Map:
		if rv.IsNil() {
			return "map:nil"
		}
		return encodeMap(rv)
	case reflect.Struct:
		return encodeStruct(rv, rt)
	case reflect.Chan:
		return fmt.Sprintf("chan:%p", v)
	case reflect.Interface:
		if rv.IsNil() {
			return "interface:nil"
		}
		return encodeValue(rv.Elem().Interface())
	}

	if isBasicKind(rt.Kind()) {
		return fmt.Sprintf("%v", v)
	}

	return jsonFallback(v)
}

func encodeSequence(label string, rv reflect.Value) string {
	length := rv.Len()
	parts := make([]string, length)
	for i := 0; i < length; i++ {
		parts[i] = encodeValue(rv.Index(i).Interface())
	}
	return fmt.Sprintf("%s[%d]:{%s}", label, length, strings.Join(parts, ","))
}

// encodeMap sorts keys so that map iteration order never leaks into the key.
func encodeMap(rv reflect.Value) string {
	keys := rv.MapKeys()

	encodedKeys := make([]string, len(keys))
	byEncoded := make(map[string]reflect.Value, len(keys))
	for i, k := range keys {
		enc := encodeValue(k.Interface())
		encodedKeys[i] = enc
		byEncoded[enc] = k
	}
	sort.Strings(encodedKeys)

	pairs := make([]string, len(encodedKeys))
	for i, enc := range encodedKeys {
		value := rv.MapIndex(byEncoded[enc])
		pairs[i] = fmt.Sprintf("%s=%s", enc, encodeValue(value.Interface()))
	}

	return fmt.Sprintf("map[%d]:{%s}", len(pairs), strings.Join(pairs, ","))
}

func encodeStruct(rv reflect.Value, rt reflect.Type) string {
	numFields := rv.NumField()
	parts := make([]string, 0, numFields)

	for i := 0; i < numFields; i++ {
		field := rt.Field(i)
		if !field.IsExported() {
			continue
		}
		fieldValue := rv.Field(i)
		if !fieldValue.CanInterface() {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s:%s", field.Name, encodeValue(fieldValue.Interface())))
	}

	return fmt.Sprintf("struct:{%s}", strings.Join(parts, ","))
}

func isBasicKind(kind reflect.Kind) bool {
	switch kind {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	default:
		return false
	}
}

func jsonFallback(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		rt := reflect.TypeOf(v)
		return fmt.Sprintf("fallback:%s", rt.String())
	}
	return fmt.Sprintf("json:%s", string(data))
}
