package tablestore

import (
	"database/sql"

	"github.com/huandu/go-sqlbuilder"

	"github.com/log2timeline/acstore/container"
	"github.com/log2timeline/acstore/errors"
	"github.com/log2timeline/acstore/types"
)

// identifierColumn is the surrogate primary key every type's table carries
// alongside its declared schema fields.
const identifierColumn = "_identifier"

func columnSQLType(kind types.ColumnKind) string {
	if kind == types.ColumnInteger {
		return "INTEGER"
	}
	return "TEXT"
}

// columnSet returns the declared field names of typeName's schema, used by
// filter.Pushdown to decide whether a predicate can be pushed down whole.
func columnSet(def *container.Def) map[string]bool {
	cols := make(map[string]bool, len(def.Schema))
	for _, f := range def.Schema {
		cols[f.Name] = true
	}
	return cols
}

// createTable issues CREATE TABLE for def, built with go-sqlbuilder. Callers
// must ensure the table does not already exist.
func createTable(db *sql.DB, def *container.Def, typeRegistry *types.Registry) error {
	ctb := sqlbuilder.NewCreateTableBuilder()
	ctb.CreateTable(def.Name)
	ctb.Define(identifierColumn, "TEXT", "PRIMARY KEY")
	for _, f := range def.Schema {
		ser, ok := typeRegistry.ColumnSerializer(f.LogicalType)
		if !ok {
			return errors.ValueErrorf("unknown logical type %q for field %q", f.LogicalType, f.Name)
		}
		ctb.Define(f.Name, columnSQLType(ser.ColumnKind()))
	}
	query, args := ctb.BuildWithFlavor(sqlbuilder.SQLite)
	if _, err := db.Exec(query, args...); err != nil {
		return errors.WrapIO(err, "creating table %q", def.Name)
	}
	return nil
}
