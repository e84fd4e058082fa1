package types

import (
	"encoding/json"

	"github.com/log2timeline/acstore/errors"
	"github.com/log2timeline/acstore/identifier"
)

func registerBuiltins(r *Registry) {
	must(r.Register(Bool, boolJSON{}, boolColumn{}))
	must(r.Register(Int, intJSON{}, intColumn{}))
	must(r.Register(Str, strJSON{}, strColumn{}))
	must(r.Register(Timestamp, timestampJSON{}, timestampColumn{}))
	must(r.Register(AttributeContainerIdentifier, identifierJSON{}, identifierColumn{}))
	must(r.Register(StrList, strListJSON{}, strListColumn{}))
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// bool: JSON boolean, column integer 0/1.

type boolJSON struct{}

func (boolJSON) Encode(v interface{}) (interface{}, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, errors.ValueErrorf("expected bool, got %T", v)
	}
	return b, nil
}

func (boolJSON) Decode(v interface{}) (interface{}, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, errors.ValueErrorf("expected JSON boolean, got %T", v)
	}
	return b, nil
}

type boolColumn struct{}

func (boolColumn) ColumnKind() ColumnKind { return ColumnInteger }

func (boolColumn) Encode(v interface{}) (interface{}, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, errors.ValueErrorf("expected bool, got %T", v)
	}
	if b {
		return int64(1), nil
	}
	return int64(0), nil
}

func (boolColumn) Decode(v interface{}) (interface{}, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	return n != 0, nil
}

// int: JSON number, column integer.

type intJSON struct{}

func (intJSON) Encode(v interface{}) (interface{}, error) {
	n, err := asInt64(v)
	if err != nil {
		return nil, err
	}
	return n, nil
}

func (intJSON) Decode(v interface{}) (interface{}, error) {
	return asInt64(v)
}

type intColumn struct{}

func (intColumn) ColumnKind() ColumnKind { return ColumnInteger }

func (intColumn) Encode(v interface{}) (interface{}, error) {
	return asInt64(v)
}

func (intColumn) Decode(v interface{}) (interface{}, error) {
	return asInt64(v)
}

// str: JSON string, column text.

type strJSON struct{}

func (strJSON) Encode(v interface{}) (interface{}, error) { return asString(v) }
func (strJSON) Decode(v interface{}) (interface{}, error) { return asString(v) }

type strColumn struct{}

func (strColumn) ColumnKind() ColumnKind { return ColumnText }

func (strColumn) Encode(v interface{}) (interface{}, error) { return asString(v) }
func (strColumn) Decode(v interface{}) (interface{}, error) { return asString(v) }

// timestamp: opaque 64-bit integer in both encodings.

type timestampJSON struct{}

func (timestampJSON) Encode(v interface{}) (interface{}, error) { return asInt64(v) }
func (timestampJSON) Decode(v interface{}) (interface{}, error) { return asInt64(v) }

type timestampColumn struct{}

func (timestampColumn) ColumnKind() ColumnKind { return ColumnInteger }

func (timestampColumn) Encode(v interface{}) (interface{}, error) { return asInt64(v) }
func (timestampColumn) Decode(v interface{}) (interface{}, error) { return asInt64(v) }

// AttributeContainerIdentifier: canonical string form in both encodings.

type identifierJSON struct{}

func (identifierJSON) Encode(v interface{}) (interface{}, error) {
	id, err := asIdentifier(v)
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

func (identifierJSON) Decode(v interface{}) (interface{}, error) {
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	return identifier.Parse(s)
}

type identifierColumn struct{}

func (identifierColumn) ColumnKind() ColumnKind { return ColumnText }

func (identifierColumn) Encode(v interface{}) (interface{}, error) {
	id, err := asIdentifier(v)
	if err != nil {
		return nil, err
	}
	return id.String(), nil
}

func (identifierColumn) Decode(v interface{}) (interface{}, error) {
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	return identifier.Parse(s)
}

// sequence-of str: JSON array of strings, column text holding a JSON array.

type strListJSON struct{}

func (strListJSON) Encode(v interface{}) (interface{}, error) {
	return asStringList(v)
}

func (strListJSON) Decode(v interface{}) (interface{}, error) {
	items, ok := v.([]interface{})
	if !ok {
		if ss, ok := v.([]string); ok {
			return ss, nil
		}
		return nil, errors.ValueErrorf("expected JSON array of strings, got %T", v)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, err := asString(item)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

type strListColumn struct{}

func (strListColumn) ColumnKind() ColumnKind { return ColumnText }

func (strListColumn) Encode(v interface{}) (interface{}, error) {
	ss, err := asStringList(v)
	if err != nil {
		return nil, err
	}
	bs, err := json.Marshal(ss)
	if err != nil {
		return nil, errors.WrapIO(err, "encoding str_list column")
	}
	return string(bs), nil
}

func (strListColumn) Decode(v interface{}) (interface{}, error) {
	s, err := asString(v)
	if err != nil {
		return nil, err
	}
	var ss []string
	if err := json.Unmarshal([]byte(s), &ss); err != nil {
		return nil, errors.WrapIO(err, "decoding str_list column")
	}
	return ss, nil
}

// --- shared coercion helpers ---

func asInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, errors.ValueErrorf("expected integer, got %T", v)
	}
}

func asString(v interface{}) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.ValueErrorf("expected string, got %T", v)
	}
	return s, nil
}

func asIdentifier(v interface{}) (identifier.Identifier, error) {
	switch id := v.(type) {
	case identifier.Identifier:
		return id, nil
	case string:
		return identifier.Parse(id)
	default:
		return identifier.Identifier{}, errors.ValueErrorf("expected container identifier, got %T", v)
	}
}

func asStringList(v interface{}) ([]string, error) {
	switch ss := v.(type) {
	case []string:
		return ss, nil
	case []interface{}:
		out := make([]string, len(ss))
		for i, item := range ss {
			s, err := asString(item)
			if err != nil {
				return nil, err
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, errors.ValueErrorf("expected []string, got %T", v)
	}
}
