package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rshade/mesgrid/internal/grid"
)

var (
	// Codes such as 007 or 0x1F are identifiers, not octal or hex numbers.
	leadingZero = regexp.MustCompile(`^[-+]?0[0-9a-zA-Z_]`)
	integerText = regexp.MustCompile(`^[-+]?[0-9]+$`)
)

// parseAssignments turns "field=value" pairs into a row. Values are read as
// YAML scalars, so 5 is a number, true a bool and abc a string. Integers too
// large for int64 are kept exactly as json.Number.
func parseAssignments(pairs []string) (grid.Row, error) {
	out := make(grid.Row, len(pairs))
	for _, p := range pairs {
		key, raw, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: expected field=value", p)
		}
		if key == grid.IDField {
			return nil, errors.New("the id field cannot be set")
		}
		if raw == "" {
			out[key] = ""
			continue
		}
		var v any
		if err := yaml.Unmarshal([]byte(raw), &v); err != nil {
			// Not a scalar YAML can read; keep the literal text.
			v = raw
		}
		switch v.(type) {
		case map[string]any, []any:
			v = raw
		case int, int64, uint64, float64:
			if leadingZero.MatchString(raw) {
				v = raw
			} else if _, isFloat := v.(float64); isFloat && integerText.MatchString(raw) {
				v = json.Number(strings.TrimPrefix(raw, "+"))
			}
		}
		out[key] = v
	}
	return out, nil
}

// readRows reads a JSON or YAML array of rows from path, by extension.
func readRows(path string) ([]grid.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rows file: %w", err)
	}

	var raw []map[string]any
	if isYAML(path) {
		err = yaml.Unmarshal(data, &raw)
	} else {
		err = decodeJSON(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing rows file %s: %w", path, err)
	}

	rows := make([]grid.Row, len(raw))
	for i, r := range raw {
		rows[i] = grid.Row(r)
	}
	return rows, nil
}

// readRow reads a single JSON or YAML object from path.
func readRow(path string) (grid.Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading row file: %w", err)
	}

	var raw map[string]any
	if isYAML(path) {
		err = yaml.Unmarshal(data, &raw)
	} else {
		err = decodeJSON(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing row file %s: %w", path, err)
	}
	return grid.Row(raw), nil
}

// decodeJSON keeps numbers as json.Number so ids and quantities beyond
// float64 precision survive.
func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
