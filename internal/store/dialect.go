package store

import (
	"fmt"
	"strings"

	"github.com/adelakul/retail-pulse/internal/catalog"
)

// dialect holds the SQL differences between backends.
type dialect struct {
	driver      Driver
	quote       func(string) string
	placeholder func(n int) string
	columnType  func(catalog.DataType) string
	runIDType   string
	rowType     string
}

var dialects = map[Driver]dialect{
	DriverPostgres: {
		driver:      DriverPostgres,
		quote:       doubleQuote,
		placeholder: func(n int) string { return fmt.Sprintf("$%d", n) },
		columnType: func(t catalog.DataType) string {
			switch t {
			case catalog.TypeFloat:
				return "DOUBLE PRECISION"
			case catalog.TypeInteger:
				return "BIGINT"
			case catalog.TypeDatetime:
				return "TIMESTAMPTZ"
			}
			return "TEXT"
		},
		runIDType: "TEXT",
		rowType:   "INTEGER",
	},
	DriverSQLite: {
		driver:      DriverSQLite,
		quote:       doubleQuote,
		placeholder: func(int) string { return "?" },
		columnType: func(t catalog.DataType) string {
			switch t {
			case catalog.TypeFloat:
				return "REAL"
			case catalog.TypeInteger:
				return "INTEGER"
			case catalog.TypeDatetime:
				return "TIMESTAMP"
			}
			return "TEXT"
		},
		runIDType: "TEXT",
		rowType:   "INTEGER",
	},
	DriverSQLServer: {
		driver:      DriverSQLServer,
		quote:       func(s string) string { return "[" + s + "]" },
		placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
		columnType: func(t catalog.DataType) string {
			switch t {
			case catalog.TypeFloat:
				return "FLOAT"
			case catalog.TypeInteger:
				return "BIGINT"
			case catalog.TypeDatetime:
				return "DATETIME2"
			}
			return "NVARCHAR(400)"
		},
		runIDType: "NVARCHAR(36)",
		rowType:   "INT",
	},
}

func doubleQuote(s string) string { return `"` + s + `"` }

// createTable returns the DDL creating table when it does not exist.
func (d dialect) createTable(table string, cat *catalog.Catalog) string {
	defs := []string{
		d.quote("run_id") + " " + d.runIDType + " NOT NULL",
		d.quote("row_index") + " " + d.rowType + " NOT NULL",
	}
	for _, f := range cat.Fields() {
		def := d.quote(f.Name) + " " + d.columnType(f.Type)
		if f.Required {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	body := strings.Join(defs, ", ")

	if d.driver == DriverSQLServer {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)", table, d.quote(table), body)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.quote(table), body)
}

// insert returns a single-row INSERT for columns.
func (d dialect) insert(table string, columns []string) string {
	quoted := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = d.quote(c)
		marks[i] = d.placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.quote(table), strings.Join(quoted, ", "), strings.Join(marks, ", "))
}
