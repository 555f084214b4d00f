package diff

import (
	"maps"
	"slices"
)

// TagDelta splits a tag change into the keys to set (added or changed in
// new) and the keys to unset (present only in old). Unset keys are sorted.
func TagDelta(old, new map[string]string) (set map[string]string, unset []string) {
	set = make(map[string]string)
	for k, v := range new {
		if ov, ok := old[k]; !ok || ov != v {
			set[k] = v
		}
	}
	for k := range old {
		if _, ok := new[k]; !ok {
			unset = append(unset, k)
		}
	}
	slices.Sort(unset)
	return set, unset
}

// SortedKeys returns the keys of a tag map in ascending order.
func SortedKeys(tags map[string]string) []string {
	return slices.Sorted(maps.Keys(tags))
}

// Tags extracts a tag map from a FieldChange value.
func Tags(v any) map[string]string {
	m, _ := v.(map[string]string)
	return m
}
