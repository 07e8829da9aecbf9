// Package render serializes shaped frames into response formats.
//
// Every format has a [Renderer]; [New] returns the one for a [Format] and
// [Write] or [Marshal] render in a single call:
//
//	body, err := render.Marshal(render.CSV, f, render.Options{})
//
// Tabular formats (csv, txt, tsv, html, xlsx, xls, table) keep the
// frame's full header stack: one header row per column level followed by
// a row of index names. Record formats (json, yaml, parquet, md) flatten
// the frame first, moving the row index into leading columns and joining
// multi-level column keys with "-". Chart formats (png, svg) plot every
// numeric column against row position.
//
// A [Registry] holds the renderers a server offers, and [Respond] writes
// either a frame or an error [Response] in the negotiated format.
package render
