// Package frame is the tabular model the reshaping engine works on.
//
// A [Frame] holds cells addressed by a multi-level row [Index] and a
// multi-level column [Index]. Frames are built from ordered [Record]
// values with [New] or [Build], keyed with [Frame.SetIndex] and pivoted
// with [Frame.Unstack], which turns the innermost row level into the
// innermost column level:
//
//	f, err := frame.Build(records, "date", "series")
//	if err != nil { ... }
//	err = f.Unstack() // columns: (value, test1), (value, test2)
//
// Cells are null, string, float64, int64, bool or time.Time. [FormatValue]
// prints them the way the delimited renderers expect: integral floats keep
// a fractional part and midnight timestamps print as plain dates.
package frame
