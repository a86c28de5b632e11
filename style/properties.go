package style

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/maruel/natural"
)

// Prop is a single property declaration. Key may be camelCase or
// kebab-case.
type Prop struct {
	Key   string
	Value any
}

// Props is an ordered list of declarations, the order is kept in the output.
type Props []Prop

// FromMap converts a Go map into Props. Keys are ordered naturally so that
// keyframe steps come out as 0%, 50%, 100%.
func FromMap[V any](m map[string]V) Props {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Sort(natural.StringSlice(keys))
	props := make(Props, 0, len(keys))
	for _, k := range keys {
		props = append(props, Prop{Key: k, Value: m[k]})
	}
	return props
}

type propValue struct {
	scalar string
	nested *PropertyMap
}

// PropertyMap is an ordered property table. Setting an existing key replaces
// its value in place, keeping the original position. Scalar keys are stored
// in kebab-case, "backgroundColor" and "background-color" name the same
// entry. Keys of nested entries (keyframe steps, selectors) are kept as
// given.
type PropertyMap struct {
	keys   []string
	values map[string]propValue
}

// NewPropertyMap returns an empty map.
func NewPropertyMap() *PropertyMap {
	return &PropertyMap{values: make(map[string]propValue)}
}

// Set stores value under key. Nested mappings (Props, *PropertyMap,
// map[string]string, map[string]any) are kept as nested maps, everything
// else must be representable as a string.
func (pm *PropertyMap) Set(key string, value any) error {
	v, err := toPropValue(key, value)
	if err != nil {
		return err
	}
	pm.put(key, v)
	return nil
}

func (pm *PropertyMap) put(key string, v propValue) {
	if v.nested == nil {
		key = CamelToKebab(key)
	}
	if _, exists := pm.values[key]; !exists {
		pm.keys = append(pm.keys, key)
	}
	pm.values[key] = v
}

func (pm *PropertyMap) lookup(key string) (propValue, bool) {
	if v, ok := pm.values[key]; ok {
		return v, true
	}
	v, ok := pm.values[CamelToKebab(key)]
	return v, ok && v.nested == nil
}

// Has reports whether key was set.
func (pm *PropertyMap) Has(key string) bool {
	_, ok := pm.lookup(key)
	return ok
}

// Get returns the scalar value stored under key. Nested entries are
// rendered with Render.
func (pm *PropertyMap) Get(key string) (string, bool) {
	v, ok := pm.lookup(key)
	if !ok {
		return "", false
	}
	if v.nested != nil {
		return v.nested.Render(), true
	}
	return v.scalar, true
}

// Keys returns keys in insertion order.
func (pm *PropertyMap) Keys() []string {
	return append([]string(nil), pm.keys...)
}

// Len returns the number of entries.
func (pm *PropertyMap) Len() int {
	return len(pm.keys)
}

// Clone returns a deep copy.
func (pm *PropertyMap) Clone() *PropertyMap {
	c := NewPropertyMap()
	for _, k := range pm.keys {
		v := pm.values[k]
		if v.nested != nil {
			v.nested = v.nested.Clone()
		}
		c.put(k, v)
	}
	return c
}

// Render produces "kebab-key: value;" for scalars and
// "key { inner-key: value; }" for nested entries, space joined.
func (pm *PropertyMap) Render() string {
	parts := make([]string, 0, len(pm.keys))
	for _, k := range pm.keys {
		v := pm.values[k]
		if v.nested != nil {
			parts = append(parts, k+" { "+v.nested.Render()+" }")
			continue
		}
		parts = append(parts, CamelToKebab(k)+": "+v.scalar+";")
	}
	return strings.Join(parts, " ")
}

var camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)

// CamelToKebab converts "backgroundColor" into "background-color". Keys
// already in kebab-case are returned lower-cased.
func CamelToKebab(s string) string {
	return strings.ToLower(camelBoundary.ReplaceAllString(s, "$1-$2"))
}

type colorString interface {
	ToRGBA() string
}

func toPropValue(key string, value any) (propValue, error) {
	if strings.TrimSpace(key) == "" {
		return propValue{}, fmt.Errorf("%w: empty property name (value %v)", ErrInvalidProperty, value)
	}
	if nested, ok, err := toNested(key, value); ok || err != nil {
		return propValue{nested: nested}, err
	}
	s, ok := toScalar(value)
	if !ok {
		return propValue{}, fmt.Errorf("%w: %s: %#v", ErrInvalidProperty, key, value)
	}
	return propValue{scalar: s}, nil
}

func toNested(key string, value any) (*PropertyMap, bool, error) {
	var props Props
	switch v := value.(type) {
	case Props:
		props = v
	case *PropertyMap:
		if v == nil {
			return nil, false, nil
		}
		return v.Clone(), true, nil
	case map[string]string:
		props = FromMap(v)
	case map[string]any:
		props = FromMap(v)
	default:
		return nil, false, nil
	}
	pm := NewPropertyMap()
	for _, p := range props {
		s, ok := toScalar(p.Value)
		if !ok || strings.TrimSpace(p.Key) == "" {
			return nil, true, fmt.Errorf("%w: %s: nested entry %q: %#v", ErrInvalidProperty, key, p.Key, p.Value)
		}
		pm.put(p.Key, propValue{scalar: s})
	}
	return pm, true, nil
}

func toScalar(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, true
	case colorString:
		if reflect.ValueOf(v).Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil() {
			return "", false
		}
		return v.ToRGBA(), true
	case fmt.Stringer:
		if reflect.ValueOf(v).Kind() == reflect.Pointer && reflect.ValueOf(v).IsNil() {
			return "", false
		}
		return v.String(), true
	case nil:
		return "", false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), true
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, rv.Type().Bits()), true
	case reflect.String:
		return rv.String(), true
	}
	return "", false
}
