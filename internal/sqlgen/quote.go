package sqlgen

import "strings"

var stringEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// QuoteIdent backtick-quotes an identifier. Embedded backticks are doubled.
func QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// QuoteString returns s as a single-quoted SQL string literal with
// backslash escaping.
func QuoteString(s string) string {
	return "'" + stringEscaper.Replace(s) + "'"
}

// SchemaRef returns the qualified reference `catalog`.`schema`.
func SchemaRef(catalog, schema string) string {
	return QuoteIdent(catalog) + "." + QuoteIdent(schema)
}

// TableRef returns the qualified reference `catalog`.`schema`.`table`.
func TableRef(catalog, schema, table string) string {
	return SchemaRef(catalog, schema) + "." + QuoteIdent(table)
}

func identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
