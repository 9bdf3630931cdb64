package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/pkg/errors"
)

// ErrTypeMismatch is returned if a value does not fit the column type reported for it
var ErrTypeMismatch = errors.New("value does not match column type")

// Kind is the closed set of column types understood by the client
type Kind int

const (
	KindUnknown Kind = iota
	KindNull
	KindByte
	KindBoolean
	KindString
	KindIP
	KindDouble
	KindFloat
	KindShort
	KindInteger
	KindLong
	KindTimestamp
	KindTimestampNoTZ
	KindObject
	KindGeoPoint
	KindGeoShape
	KindArray
	KindSet
)

// Tags used by CrateDB in the col_types field
const (
	TagNull          = 0
	TagNotSupported  = 1
	TagByte          = 2
	TagBoolean       = 3
	TagString        = 4
	TagIP            = 5
	TagDouble        = 6
	TagFloat         = 7
	TagShort         = 8
	TagInteger       = 9
	TagLong          = 10
	TagTimestamp     = 11
	TagObject        = 12
	TagGeoPoint      = 13
	TagGeoShape      = 14
	TagTimestampNoTZ = 15
	TagArray         = 100
	TagSet           = 101
)

var kindByTag = map[int]Kind{
	TagNull:          KindNull,
	TagNotSupported:  KindUnknown,
	TagByte:          KindByte,
	TagBoolean:       KindBoolean,
	TagString:        KindString,
	TagIP:            KindIP,
	TagDouble:        KindDouble,
	TagFloat:         KindFloat,
	TagShort:         KindShort,
	TagInteger:       KindInteger,
	TagLong:          KindLong,
	TagTimestamp:     KindTimestamp,
	TagObject:        KindObject,
	TagGeoPoint:      KindGeoPoint,
	TagGeoShape:      KindGeoShape,
	TagTimestampNoTZ: KindTimestampNoTZ,
	TagArray:         KindArray,
	TagSet:           KindSet,
}

var kindNames = map[Kind]string{
	KindUnknown:       "unknown",
	KindNull:          "null",
	KindByte:          "byte",
	KindBoolean:       "boolean",
	KindString:        "string",
	KindIP:            "ip",
	KindDouble:        "double",
	KindFloat:         "float",
	KindShort:         "short",
	KindInteger:       "integer",
	KindLong:          "long",
	KindTimestamp:     "timestamp",
	KindTimestampNoTZ: "timestamp without time zone",
	KindObject:        "object",
	KindGeoPoint:      "geo_point",
	KindGeoShape:      "geo_shape",
	KindArray:         "array",
	KindSet:           "set",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// KindOf returns the kind for a col_types tag, KindUnknown for unknown tags
func KindOf(tag int) Kind {
	if k, ok := kindByTag[tag]; ok {
		return k
	}
	return KindUnknown
}

// ColumnType describes the type of one result column. Element is only set for
// arrays and sets.
type ColumnType struct {
	Kind    Kind
	Tag     int
	Element *ColumnType
}

func (t ColumnType) String() string {
	if t.Element != nil {
		return fmt.Sprintf("%s(%s)", t.Kind, t.Element)
	}
	return t.Kind.String()
}

// Unknown is the type used for columns without type information
var Unknown = ColumnType{Kind: KindUnknown, Tag: TagNotSupported}

// ParseColumnType parses a single entry of the col_types field
func ParseColumnType(raw json.RawMessage) (ColumnType, error) {
	var v any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return Unknown, errors.Wrapf(err, "parsing column type %q", string(raw))
	}
	return parseColumnType(v)
}

func parseColumnType(v any) (ColumnType, error) {
	switch t := v.(type) {
	case json.Number:
		tag, err := strconv.Atoi(t.String())
		if err != nil {
			return Unknown, errors.Wrapf(err, "invalid column type tag %s", t)
		}
		return ColumnType{Kind: KindOf(tag), Tag: tag}, nil

	case []any:
		if len(t) != 2 {
			return Unknown, errors.Errorf("invalid collection type %v", t)
		}
		outer, err := parseColumnType(t[0])
		if err != nil {
			return Unknown, err
		}
		inner, err := parseColumnType(t[1])
		if err != nil {
			return Unknown, err
		}
		outer.Element = &inner
		return outer, nil

	default:
		return Unknown, errors.Errorf("invalid column type %v", v)
	}
}

// ParseColumnTypes parses the col_types field. Missing entries (older servers
// or requests without ?types) are filled with Unknown.
func ParseColumnTypes(raw []json.RawMessage, n int) ([]ColumnType, error) {
	types := make([]ColumnType, n)
	for i := range types {
		if i >= len(raw) {
			types[i] = Unknown
			continue
		}
		t, err := ParseColumnType(raw[i])
		if err != nil {
			return nil, err
		}
		types[i] = t
	}
	return types, nil
}

// --------------------------------------------------------------------------
// Decoding
// --------------------------------------------------------------------------

// Decode converts a value decoded with json.Decoder.UseNumber into the Go
// value for this column type. nil is returned unchanged for every type.
func (t ColumnType) Decode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch t.Kind {
	case KindString, KindIP:
		s, ok := v.(string)
		if !ok {
			return nil, mismatch(t, v)
		}
		return s, nil

	case KindBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, mismatch(t, v)
		}
		return b, nil

	case KindByte, KindShort, KindInteger, KindLong, KindTimestamp, KindTimestampNoTZ:
		n, ok := v.(json.Number)
		if !ok {
			return nil, mismatch(t, v)
		}
		return toInt64(n)

	case KindDouble, KindFloat:
		n, ok := v.(json.Number)
		if !ok {
			return nil, mismatch(t, v)
		}
		f, err := n.Float64()
		if err != nil {
			return nil, errors.Wrapf(ErrTypeMismatch, "%s: %v", t, err)
		}
		return f, nil

	case KindObject, KindGeoShape:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, mismatch(t, v)
		}
		return Normalize(m), nil

	case KindGeoPoint:
		p, ok := v.([]any)
		if !ok {
			return nil, mismatch(t, v)
		}
		return Normalize(p), nil

	case KindArray, KindSet:
		items, ok := v.([]any)
		if !ok {
			return nil, mismatch(t, v)
		}
		elem := Unknown
		if t.Element != nil {
			elem = *t.Element
		}
		out := make([]any, len(items))
		for i, item := range items {
			d, err := elem.Decode(item)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil

	default:
		return Normalize(v), nil
	}
}

// Normalize replaces every json.Number in v by an int64 if it is integral and
// representable, by a float64 otherwise.
func Normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t.String()
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = Normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Normalize(item)
		}
		return out
	default:
		return v
	}
}

func toInt64(n json.Number) (any, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	// integral values in exponent notation (1e3)
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > math.MaxInt64 {
		return nil, errors.Wrapf(ErrTypeMismatch, "%s is not an integer", n)
	}
	return int64(f), nil
}

func mismatch(t ColumnType, v any) error {
	return errors.Wrapf(ErrTypeMismatch, "expected %s, got %T", t, v)
}
