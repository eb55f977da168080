package grid

// upsertRow returns a copy of rows with r inserted or replaced by id.
// An existing entry keeps its position; a new id is appended.
func upsertRow(rows []Row, id string, r Row) []Row {
	out := make([]Row, len(rows), len(rows)+1)
	copy(out, rows)

	if i := indexOf(out, id); i >= 0 {
		out[i] = r
		return out
	}
	return append(out, r)
}

// replaceRow returns a copy of rows with the entry matching id overwritten.
// Rows without a match are returned unchanged.
func replaceRow(rows []Row, id string, r Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)

	if i := indexOf(out, id); i >= 0 {
		out[i] = r
	}
	return out
}

// removeRows returns the rows whose id is not in ids, preserving order.
func removeRows(rows []Row, ids map[string]struct{}) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		id, _ := r.ID()
		if _, drop := ids[id]; drop {
			continue
		}
		out = append(out, r)
	}
	return out
}

func indexOf(rows []Row, id string) int {
	for i, r := range rows {
		if rid, ok := r.ID(); ok && rid == id {
			return i
		}
	}
	return -1
}

func idSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
