package grid

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Supported field type names for FieldMapper coercion.
const (
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeString = "string"
	TypeBool   = "bool"
)

// ErrCoerce indicates a field value that cannot be converted to its declared type.
var ErrCoerce = errors.New("cannot coerce field")

// FieldMapper strips UI-only fields and coerces field types so a row matches
// the backend input shape.
type FieldMapper struct {
	// Drop lists fields removed from every row.
	Drop []string

	// Types maps field names to one of TypeInt, TypeFloat, TypeString, TypeBool.
	Types map[string]string

	// StripID removes the id field, for backends that assign ids on create.
	StripID bool
}

// Map returns a converted copy of r. Values that fail coercion are kept as
// they are; call Check first to surface those as errors.
func (m FieldMapper) Map(r Row) Row {
	out, _ := m.apply(r)
	return out
}

// Check reports the first coercion failure across rows.
func (m FieldMapper) Check(rows []Row) error {
	for _, r := range rows {
		if _, err := m.apply(r); err != nil {
			return fmt.Errorf("row %s: %w", IDOf(r), err)
		}
	}
	return nil
}

func (m FieldMapper) apply(r Row) (Row, error) {
	out := r.Clone()
	if out == nil {
		out = Row{}
	}
	for _, f := range m.Drop {
		delete(out, f)
	}
	if m.StripID {
		delete(out, IDField)
	}

	var firstErr error
	for field, typ := range m.Types {
		v, ok := out[field]
		if !ok || v == nil {
			continue
		}
		cv, err := coerce(v, typ)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("%w %q to %s: %w", ErrCoerce, field, typ, err)
			}
			continue
		}
		out[field] = cv
	}
	return out, firstErr
}

func coerce(v any, typ string) (any, error) {
	switch typ {
	case TypeInt:
		return toInt(v)
	case TypeFloat:
		return toFloat(v)
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		return fmt.Sprint(v), nil
	case TypeBool:
		return toBool(v)
	default:
		return nil, fmt.Errorf("unknown type %q", typ)
	}
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not integral", n)
		}
		return int64(n), nil
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return toInt(f)
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported value %T", v)
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unsupported value %T", v)
	}
}

func toBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	default:
		return false, fmt.Errorf("unsupported value %T", v)
	}
}
