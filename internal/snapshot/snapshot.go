// Package snapshot reads and writes schema snapshots. A snapshot directory
// holds one file per schema, all in the same format (YAML or JSON), named
// after the schema.
package snapshot

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/sadopc/catalogsync/internal/schema"
)

// Format is a snapshot file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".yaml"
}

// ParseFormat accepts "yaml", "yml" and "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("snapshot: unknown format %q (want yaml or json)", s)
}

var (
	// ErrMixedFormats is returned when a directory holds both YAML and JSON
	// snapshot files.
	ErrMixedFormats = errors.New("mixed YAML and JSON files in schema directory")
	// ErrNoSnapshots is returned when a directory holds no snapshot files.
	ErrNoSnapshots = errors.New("no YAML or JSON files found")
)

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

// MarshalSchema encodes one schema.
func MarshalSchema(s *schema.Schema, f Format) ([]byte, error) {
	return encode(fromSchema(s), f)
}

// UnmarshalSchema decodes one schema. Column positions follow file order.
func UnmarshalSchema(data []byte, f Format) (*schema.Schema, error) {
	var doc schemaDoc
	if err := decode(data, f, &doc); err != nil {
		return nil, err
	}
	s := doc.model()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	return &s, nil
}

// MarshalCatalog encodes a whole catalog into a single document.
func MarshalCatalog(c *schema.Catalog, f Format) ([]byte, error) {
	return encode(fromCatalog(c), f)
}

// UnmarshalCatalog decodes a whole-catalog document.
func UnmarshalCatalog(data []byte, f Format) (*schema.Catalog, error) {
	var doc catalogDoc
	if err := decode(data, f, &doc); err != nil {
		return nil, err
	}
	c := doc.model()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	return c, nil
}

func encode(v any, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("snapshot encode json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return nil, fmt.Errorf("snapshot encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("snapshot encode yaml: %w", err)
		}
		return buf.Bytes(), nil
	}
}

func decode(data []byte, f Format, v any) error {
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("snapshot decode json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("snapshot decode yaml: %w", err)
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Directories
// ---------------------------------------------------------------------------

// Dir is the result of loading a snapshot directory.
type Dir struct {
	Path    string
	Format  Format
	Schemas []schema.Schema
}

// Names returns the loaded schema names.
func (d *Dir) Names() []string {
	names := make([]string, len(d.Schemas))
	for i, s := range d.Schemas {
		names[i] = s.Name
	}
	return names
}

// Catalog wraps the loaded schemas in a catalog with the given name.
func (d *Dir) Catalog(name string) *schema.Catalog {
	return &schema.Catalog{Name: name, Schemas: d.Schemas}
}

// DetectFormat inspects dir and returns the format of its snapshot files.
func DetectFormat(dir string) (Format, error) {
	yamlFiles, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return "", fmt.Errorf("snapshot scan: %w", err)
	}
	jsonFiles, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return "", fmt.Errorf("snapshot scan: %w", err)
	}
	switch {
	case len(yamlFiles) > 0 && len(jsonFiles) > 0:
		return "", fmt.Errorf("snapshot %s: %w", dir, ErrMixedFormats)
	case len(jsonFiles) > 0:
		return FormatJSON, nil
	case len(yamlFiles) > 0:
		return FormatYAML, nil
	}
	return "", fmt.Errorf("snapshot %s: %w", dir, ErrNoSnapshots)
}

// LoadDir reads every snapshot file in dir. When names is non-empty only
// files whose base name is listed are read. Schemas are returned sorted by
// name.
func LoadDir(dir string, names []string) (*Dir, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("snapshot load: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("snapshot load: %s is not a directory", dir)
	}

	format, err := DetectFormat(dir)
	if err != nil {
		return nil, err
	}

	files, err := filepath.Glob(filepath.Join(dir, "*"+format.Ext()))
	if err != nil {
		return nil, fmt.Errorf("snapshot scan: %w", err)
	}

	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	out := &Dir{Path: dir, Format: format}
	for _, file := range files {
		stem := strings.TrimSuffix(filepath.Base(file), format.Ext())
		if len(wanted) > 0 && !wanted[stem] {
			continue
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("snapshot load: %w", err)
		}
		s, err := UnmarshalSchema(data, format)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", file, err)
		}
		out.Schemas = append(out.Schemas, *s)
	}
	schema.SortSchemas(out.Schemas)
	return out, nil
}

// WriteDir writes one file per schema into dir, creating it if needed, and
// returns the written paths.
func WriteDir(dir string, schemas []schema.Schema, f Format) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot write: %w", err)
	}
	var paths []string
	for i := range schemas {
		path, err := WriteSchema(dir, &schemas[i], f)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// WriteSchema writes a single schema file into dir.
func WriteSchema(dir string, s *schema.Schema, f Format) (string, error) {
	data, err := MarshalSchema(s, f)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, s.Name+f.Ext())
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("snapshot write: %w", err)
	}
	return path, nil
}

// SQLFile is the SQL text of one schema.
type SQLFile struct {
	Schema     string
	Statements []string
}

// WriteSQLDir writes one <schema>.sql file per entry into dir and returns the
// written paths.
func WriteSQLDir(dir string, files []SQLFile) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("snapshot write sql: %w", err)
	}
	var paths []string
	for _, f := range files {
		path := filepath.Join(dir, f.Schema+".sql")
		body := strings.Join(f.Statements, "\n") + "\n"
		if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
			return paths, fmt.Errorf("snapshot write sql: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
