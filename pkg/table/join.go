package table

import "fmt"

// ValidateJoinColumn confirms that column is present in the dataset's schema.
// datasetName is the human-readable label ("left_input_data" /
// "right_input_data") used in the failure message. The check is read-only and
// runs independently per side so either missing column is distinguishable.
func ValidateJoinColumn(t *Table, column, datasetName string) error {
	if !t.HasColumn(column) {
		return invalidInputf("The join column '%s' is not present in %s.", column, datasetName)
	}
	return nil
}

// Join performs an inner equi-join of left and right on the given key
// columns. Rows are kept only where the key values are equal; unmatched rows
// on either side are dropped. When both key columns share the same name, the
// right side's copy is dropped from the output so the name appears exactly
// once; different key names are both retained.
//
// Join expects both columns to have been validated with ValidateJoinColumn
// and does not re-run that check. Null (nil) keys never match anything,
// including other nulls. An empty result is an *InvalidInputError: downstream
// monitoring consumers cannot act on an empty comparison set, so it is a
// data-quality failure rather than a valid output.
func Join(left *Table, leftColumn string, right *Table, rightColumn string) (*Table, error) {
	leftKey, ok := left.Column(leftColumn)
	if !ok {
		return nil, fmt.Errorf("join column %q not in left table", leftColumn)
	}
	rightKey, ok := right.Column(rightColumn)
	if !ok {
		return nil, fmt.Errorf("join column %q not in right table", rightColumn)
	}

	// Hash join: index the right key column, probe with left rows. Matches
	// are emitted in left-row order.
	index := make(map[any][]int, len(rightKey.Values))
	for i, v := range rightKey.Values {
		k, ok := joinKey(v)
		if !ok {
			continue
		}
		index[k] = append(index[k], i)
	}

	var leftRows, rightRows []int
	for i, v := range leftKey.Values {
		k, ok := joinKey(v)
		if !ok {
			continue
		}
		for _, j := range index[k] {
			leftRows = append(leftRows, i)
			rightRows = append(rightRows, j)
		}
	}

	if len(leftRows) == 0 {
		return nil, invalidInputf("The data joiner resulted in an empty data asset. Please check the input data to see if this is expected.")
	}

	sameKeyName := leftColumn == rightColumn
	columns := make([]Column, 0, left.NumColumns()+right.NumColumns())
	for _, c := range left.columns {
		columns = append(columns, gather(c, leftRows))
	}
	for _, c := range right.columns {
		if sameKeyName && c.Name == rightColumn {
			continue
		}
		columns = append(columns, gather(c, rightRows))
	}
	return New(columns...)
}

func gather(c Column, rows []int) Column {
	out := make([]any, len(rows))
	for i, r := range rows {
		out[i] = c.Values[r]
	}
	return Column{Name: c.Name, Values: out}
}

// joinKey normalizes a key value for hash lookup. Nil is not joinable. Scalar
// values are used directly, so equality requires both matching type and
// value. Non-comparable values fall back to their string rendering.
func joinKey(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	switch v.(type) {
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v, true
	}
	return fmt.Sprintf("%v", v), true
}
