// Package types contains the value model shared by the SQL layer: the closed
// set of CrateDB column types reported by the HTTP endpoint and the decoding
// of raw JSON values into Go values according to those types.
//
// Column Types:
//
//	A request sent to /_sql?types is answered with a "col_types" array next to
//	"cols". Scalar types are reported as a numeric tag, collection types as a
//	two element array of the collection tag and the element type, for example
//	[100, 4] for an array of strings. ParseColumnType turns these tags into a
//	ColumnType, tags unknown to this package map to KindUnknown and their
//	values are passed through without conversion.
//
// Value Mapping:
//
//	string, ip                         -> string
//	byte, short, integer, long         -> int64
//	timestamp (with or without tz)     -> int64 (epoch millis)
//	float, double                      -> float64
//	boolean                            -> bool
//	object, geo_shape                  -> map[string]any
//	geo_point                          -> []any
//	array, set                         -> []any (element type applied)
//	null, unknown                      -> generic JSON value
//
// Tracked Containers:
//
//	TrackedList and TrackedMap wrap a slice or map and remember whether they
//	were modified since the last ClearDirty, which lets callers decide if an
//	object column has to be written back.
package types
