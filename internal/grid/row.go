package grid

import (
	"errors"
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strings"
)

// UnpersistedPrefix marks ids minted client-side for rows the backend has not
// acknowledged yet.
const UnpersistedPrefix = "NEW_"

// IDField is the mandatory row identity field.
const IDField = "id"

// Row validation errors.
var (
	// ErrMissingID indicates a row without an id field.
	ErrMissingID = errors.New("row has no id")

	// ErrInvalidID indicates an id that is not a non-empty string.
	ErrInvalidID = errors.New("row id must be a non-empty string")
)

// Row is one record of an editable grid, keyed by field name.
type Row map[string]any

// ID returns the row id and whether it is present as a string.
func (r Row) ID() (string, bool) {
	v, ok := r[IDField]
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// Clone returns a shallow copy of the row. Field values are shared.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// Kind discriminates unpersisted rows from persisted ones.
type Kind int

const (
	// KindNew is a row created client-side and not yet saved.
	KindNew Kind = iota
	// KindPersisted is a row the backend already knows about.
	KindPersisted
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindNew:
		return "new"
	case KindPersisted:
		return "persisted"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Classified is a row tagged with its persistence kind.
type Classified struct {
	Kind Kind
	ID   string
	Row  Row
}

// IsUnpersisted reports whether id carries the temporary-id prefix.
func IsUnpersisted(id string) bool {
	return strings.HasPrefix(id, UnpersistedPrefix)
}

// Classify validates the row id and tags the row as new or persisted.
func Classify(r Row) (Classified, error) {
	id, err := rowID(r)
	if err != nil {
		return Classified{}, err
	}

	kind := KindPersisted
	if IsUnpersisted(id) {
		kind = KindNew
	}
	return Classified{Kind: kind, ID: id, Row: r}, nil
}

// rowID extracts a valid id or reports why it is unusable.
func rowID(r Row) (string, error) {
	v, ok := r[IDField]
	if !ok {
		return "", ErrMissingID
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", fmt.Errorf("%w: got %v", ErrInvalidID, v)
	}
	return id, nil
}

// ChangedFields lists the fields whose values differ between prev and next,
// sorted by name. Fields present on only one side count as changed.
func ChangedFields(prev, next Row) []string {
	var changed []string
	for k, nv := range next {
		pv, ok := prev[k]
		if !ok || !reflect.DeepEqual(pv, nv) {
			changed = append(changed, k)
		}
	}
	for k := range prev {
		if _, ok := next[k]; !ok {
			changed = append(changed, k)
		}
	}
	sort.Strings(changed)
	return changed
}
