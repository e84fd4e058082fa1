package tablestore

import (
	"database/sql"

	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/errors"
	"github.com/log2timeline/acstore/identifier"
	"github.com/log2timeline/acstore/types"
)

// encodeRow returns the column names (identifier first, then schema order)
// and their column-encoded values for an insert/upsert of c.
func encodeRow(c *container.Container, typeRegistry *types.Registry) (columns []string, values []interface{}, err error) {
	id, ok := c.Identifier()
	if !ok {
		return nil, nil, errors.IOErrorf("container has no identifier")
	}
	columns = append(columns, identifierColumn)
	values = append(values, id.String())

	for _, fv := range c.FieldValues() {
		logicalType, ok := c.Def().Schema.LogicalType(fv.Name)
		if !ok {
			continue
		}
		ser, ok := typeRegistry.ColumnSerializer(logicalType)
		if !ok {
			return nil, nil, errors.ValueErrorf("unknown logical type %q for field %q", logicalType, fv.Name)
		}
		encoded, err := ser.Encode(fv.Value)
		if err != nil {
			return nil, nil, errors.WrapIO(err, "encoding field %q of type %q", fv.Name, c.TypeName())
		}
		columns = append(columns, fv.Name)
		values = append(values, encoded)
	}
	return columns, values, nil
}

// scanRow decodes one row (ordered identifier, then def.Schema fields, with
// NULL standing in for an absent field) into a fresh Container. Each field
// is scanned into the Go type matching its column affinity so its
// ColumnSerializer.Decode sees a native int64 or string, not a coerced one.
func scanRow(row *sql.Rows, def *container.Def, typeRegistry *types.Registry) (*container.Container, error) {
	dest := make([]interface{}, 1+len(def.Schema))
	var idStr sql.NullString
	dest[0] = &idStr

	intVals := make([]sql.NullInt64, len(def.Schema))
	strVals := make([]sql.NullString, len(def.Schema))
	kinds := make([]types.ColumnKind, len(def.Schema))
	for i, f := range def.Schema {
		ser, ok := typeRegistry.ColumnSerializer(f.LogicalType)
		if !ok {
			return nil, errors.ValueErrorf("unknown logical type %q for field %q", f.LogicalType, f.Name)
		}
		kinds[i] = ser.ColumnKind()
		if kinds[i] == types.ColumnInteger {
			dest[i+1] = &intVals[i]
		} else {
			dest[i+1] = &strVals[i]
		}
	}
	if err := row.Scan(dest...); err != nil {
		return nil, errors.WrapIO(err, "scanning row for type %q", def.Name)
	}

	c := container.New(def)
	if idStr.Valid {
		id, err := identifier.Parse(idStr.String)
		if err != nil {
			return nil, errors.WrapIO(err, "parsing identifier %q for type %q", idStr.String, def.Name)
		}
		c.SetIdentifier(id)
	}
	for i, f := range def.Schema {
		var raw interface{}
		switch kinds[i] {
		case types.ColumnInteger:
			if !intVals[i].Valid {
				continue
			}
			raw = intVals[i].Int64
		default:
			if !strVals[i].Valid {
				continue
			}
			raw = strVals[i].String
		}
		ser, ok := typeRegistry.ColumnSerializer(f.LogicalType)
		if !ok {
			return nil, errors.ValueErrorf("unknown logical type %q for field %q", f.LogicalType, f.Name)
		}
		decoded, err := ser.Decode(raw)
		if err != nil {
			return nil, errors.WrapIO(err, "decoding field %q of type %q", f.Name, def.Name)
		}
		c.Set(f.Name, decoded)
	}
	return c, nil
}

// selectColumns returns the column list used by every SELECT against
// def's table: the identifier followed by the schema fields, in order.
func selectColumns(def *container.Def) []string {
	cols := make([]string, 0, len(def.Schema)+1)
	cols = append(cols, identifierColumn)
	for _, f := range def.Schema {
		cols = append(cols, f.Name)
	}
	return cols
}
