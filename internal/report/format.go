package report

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// FormatValue renders a field value for the report: strings are quoted with
// single quotes, nil is "null", tag maps print as {k: 'v'} with sorted keys
// and string slices as ['a', 'b'].
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	case map[string]string:
		keys := slices.Sorted(maps.Keys(x))
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + quote(x[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []string:
		parts := make([]string, len(x))
		for i, s := range x {
			parts[i] = quote(s)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case fmt.Stringer:
		return quote(x.String())
	}
	return fmt.Sprint(v)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `\'`) + "'"
}
