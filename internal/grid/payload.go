package grid

// Mapper converts a grid row into the shape a backend mutation expects.
type Mapper[T any] func(Row) T

// Identity is a Mapper that returns the row unchanged.
func Identity(r Row) Row { return r }

// SavePayload is the body of a batched save mutation.
type SavePayload[C, U any] struct {
	CreatedRows []C `json:"createdRows" yaml:"createdRows"`
	UpdatedRows []U `json:"updatedRows" yaml:"updatedRows"`
}

// IsEmpty reports whether the payload carries no rows.
func (p SavePayload[C, U]) IsEmpty() bool {
	return len(p.CreatedRows) == 0 && len(p.UpdatedRows) == 0
}

// DeletePayload splits a selection into rows that only exist locally and
// mapped identifiers of rows the backend must delete.
type DeletePayload[T any] struct {
	NewRows      []Row `json:"newRows" yaml:"newRows"`
	ExistingRows []T   `json:"existingRows" yaml:"existingRows"`
}

// FormatSave maps the pending sets into a save payload. Output order follows
// input order and the inputs are not modified. Empty inputs produce empty,
// non-nil slices.
func FormatSave[C, U any](newRows, updatedRows []Row, mapNew Mapper[C], mapUpdated Mapper[U]) SavePayload[C, U] {
	return SavePayload[C, U]{
		CreatedRows: mapRows(newRows, mapNew),
		UpdatedRows: mapRows(updatedRows, mapUpdated),
	}
}

// FormatDelete partitions rows by persistence kind. Unpersisted rows are
// returned verbatim in NewRows; persisted rows pass through mapExisting into
// ExistingRows. Every input row lands in exactly one bucket, order preserved.
func FormatDelete[T any](rows []Row, mapExisting Mapper[T]) (DeletePayload[T], error) {
	out := DeletePayload[T]{
		NewRows:      []Row{},
		ExistingRows: []T{},
	}
	for _, r := range rows {
		c, err := Classify(r)
		if err != nil {
			return DeletePayload[T]{NewRows: []Row{}, ExistingRows: []T{}}, err
		}
		if c.Kind == KindNew {
			out.NewRows = append(out.NewRows, r)
			continue
		}
		out.ExistingRows = append(out.ExistingRows, mapExisting(r))
	}
	return out, nil
}

// IDs returns the ids of rows, skipping rows without a usable id.
func IDs(rows []Row) []string {
	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		if id, ok := r.ID(); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// IDOf is a Mapper that extracts the row id.
func IDOf(r Row) string {
	id, _ := r.ID()
	return id
}

func mapRows[T any](rows []Row, m Mapper[T]) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		out = append(out, m(r))
	}
	return out
}
