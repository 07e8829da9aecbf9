package frame

import (
	"fmt"
	"slices"
)

// Unstack moves the last row index level into a new innermost column
// level. Remaining row keys and column keys come out sorted. Cells with no
// source entry are null.
func (f *Frame) Unstack() error {
	nl := f.index.Levels()
	if nl == 0 {
		return ErrNoIndex
	}
	moved := nl - 1

	rowPos := make(map[string]int)
	var rowKeys []Key
	valPos := make(map[string]int)
	var vals []any
	rowOf := make([]int, len(f.index.Keys))
	valOf := make([]int, len(f.index.Keys))
	for i, k := range f.index.Keys {
		rk := k[:moved].clone()
		h := rk.hash()
		p, ok := rowPos[h]
		if !ok {
			p = len(rowKeys)
			rowPos[h] = p
			rowKeys = append(rowKeys, rk)
		}
		rowOf[i] = p

		vk := Key{k[moved]}
		h = vk.hash()
		v, ok := valPos[h]
		if !ok {
			v = len(vals)
			valPos[h] = v
			vals = append(vals, k[moved])
		}
		valOf[i] = v
	}

	rowRank := sortedRank(len(rowKeys), func(a, b int) int { return rowKeys[a].Compare(rowKeys[b]) })
	valRank := sortedRank(len(vals), func(a, b int) int { return Compare(vals[a], vals[b]) })
	sortedVals := make([]any, len(vals))
	for v, r := range valRank {
		sortedVals[r] = vals[v]
	}
	sortedRows := make([]Key, len(rowKeys))
	for p, r := range rowRank {
		sortedRows[r] = rowKeys[p]
	}

	width, nv := f.Width(), len(vals)
	cols := make([]Key, 0, width*nv)
	for _, ck := range f.columns.Keys {
		for _, v := range sortedVals {
			cols = append(cols, append(ck.clone(), v))
		}
	}
	cells := make([][]any, len(rowKeys))
	for r := range cells {
		cells[r] = make([]any, width*nv)
	}
	seen := make(map[[2]int]bool, len(f.index.Keys))
	for i, row := range f.cells {
		r, v := rowRank[rowOf[i]], valRank[valOf[i]]
		if seen[[2]int{r, v}] {
			return fmt.Errorf("%w: %v", ErrDuplicateEntry, f.index.Keys[i])
		}
		seen[[2]int{r, v}] = true
		for j, cell := range row {
			cells[r][j*nv+v] = cell
		}
	}

	order := make([]int, len(cols))
	for j := range order {
		order[j] = j
	}
	slices.SortStableFunc(order, func(a, b int) int { return cols[a].Compare(cols[b]) })
	sortedCols := make([]Key, len(cols))
	for j, o := range order {
		sortedCols[j] = cols[o]
	}
	for r, row := range cells {
		nr := make([]any, len(row))
		for j, o := range order {
			nr[j] = row[o]
		}
		cells[r] = nr
	}

	f.columns = Index{
		Names: append(slices.Clone(f.columns.Names), f.index.Names[moved]),
		Keys:  sortedCols,
	}
	f.index = Index{Names: slices.Clone(f.index.Names[:moved]), Keys: sortedRows}
	f.cells = cells
	return nil
}

// UnstackN calls Unstack n times.
func (f *Frame) UnstackN(n int) error {
	for range n {
		if err := f.Unstack(); err != nil {
			return err
		}
	}
	return nil
}

// sortedRank returns, for each of n items, its position in sorted order.
func sortedRank(n int, cmp func(a, b int) int) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, cmp)
	rank := make([]int, n)
	for r, i := range order {
		rank[i] = r
	}
	return rank
}

// DropNullRows removes rows whose cells are all null.
func (f *Frame) DropNullRows() int {
	return f.dropRows(func(row []any) bool { return all(row, IsNull) })
}

// DropIncompleteRows removes rows holding any null cell and returns how
// many were removed.
func (f *Frame) DropIncompleteRows() int {
	return f.dropRows(func(row []any) bool { return slices.ContainsFunc(row, IsNull) })
}

func (f *Frame) dropRows(drop func([]any) bool) int {
	keep := make([]int, 0, f.Len())
	for i, row := range f.cells {
		if !drop(row) {
			keep = append(keep, i)
		}
	}
	removed := f.Len() - len(keep)
	if removed > 0 {
		f.selectRows(keep)
	}
	return removed
}

// DropNullColumns removes columns whose cells are all null.
func (f *Frame) DropNullColumns() int {
	keep := make([]int, 0, f.Width())
	for j := range f.Width() {
		if !all(f.Column(j), IsNull) {
			keep = append(keep, j)
		}
	}
	removed := f.Width() - len(keep)
	if removed > 0 {
		f.selectColumns(keep)
	}
	return removed
}

func all(vals []any, pred func(any) bool) bool {
	for _, v := range vals {
		if !pred(v) {
			return false
		}
	}
	return true
}
