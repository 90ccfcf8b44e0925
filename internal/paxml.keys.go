package internal

import (
	"reflect"
	"sort"

	"github.com/maruel/natural"
)

// SortedKeys returns the member names of a map or introspectable value.
// Map keys are ordered naturally ("item2" before "item10"); introspectable
// properties keep their declared order.
func SortedKeys(v any) ([]string, bool) {
	if props, ok := Introspect(v); ok {
		keys := make([]string, len(props))
		for i, p := range props {
			keys[i] = p.Name
		}
		return keys, true
	}

	var keys []string
	switch val := v.(type) {
	case nil:
		return nil, false
	case map[string]any:
		keys = make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
	default:
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Map {
			return nil, false
		}
		keys = make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, Stringify(k.Interface()))
		}
	}

	sort.Slice(keys, func(i, j int) bool { return natural.Less(keys[i], keys[j]) })
	return keys, true
}
