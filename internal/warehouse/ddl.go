package warehouse

import (
	"fmt"
	"strings"
)

type Column struct {
	Name    string
	Type    ColumnType
	NotNull bool
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableDef declares a relation independently of the engine it lands on.
type TableDef struct {
	Name        string
	Columns     []Column
	PrimaryKey  string
	ForeignKeys []ForeignKey
	Physical    Physical
}

// ColumnNames returns the declared column names in order.
func (t TableDef) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// References returns the distinct tables this one points at.
func (t TableDef) References() []string {
	seen := map[string]struct{}{}
	var refs []string
	for _, fk := range t.ForeignKeys {
		if _, ok := seen[fk.RefTable]; ok {
			continue
		}
		seen[fk.RefTable] = struct{}{}
		refs = append(refs, fk.RefTable)
	}
	return refs
}

// CreateTable renders the CREATE TABLE statement for def.
func (d Dialect) CreateTable(def TableDef) Statement {
	lines := make([]string, 0, len(def.Columns)+len(def.ForeignKeys)+1)
	for _, c := range def.Columns {
		line := fmt.Sprintf("%s %s", c.Name, d.ColumnType(c.Type))
		if c.NotNull || c.Name == def.PrimaryKey {
			line += " NOT NULL"
		}
		lines = append(lines, line)
	}
	if def.PrimaryKey != "" {
		lines = append(lines, fmt.Sprintf("PRIMARY KEY (%s)%s", def.PrimaryKey, d.ConstraintSuffix()))
	}
	for _, fk := range def.ForeignKeys {
		lines = append(lines, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s (%s)%s",
			fk.Column, d.Table(fk.RefTable), fk.RefColumn, d.ConstraintSuffix()))
	}

	sql := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)%s",
		d.Table(def.Name), strings.Join(lines, ",\n\t"), d.TableOptions(def.Physical))
	return Statement{SQL: sql}
}

func (d Dialect) DropTableIfExists(name string) Statement {
	return Statement{SQL: fmt.Sprintf("DROP TABLE IF EXISTS %s", d.Table(name))}
}

// DeleteAll empties a table. BigQuery rejects DELETE without a predicate.
func (d Dialect) DeleteAll(name string) Statement {
	return Statement{SQL: fmt.Sprintf("DELETE FROM %s WHERE 1 = 1", d.Table(name))}
}

// TableExistsQuery counts catalog entries for name in the session's schema.
func (d Dialect) TableExistsQuery(name string) Statement {
	switch d.Kind {
	case KindSQLite:
		return Statement{SQL: "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", Args: []any{name}}
	case KindBigQuery:
		return Statement{
			SQL:  fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE table_name = ?", d.QuoteIdent(d.Dataset+".INFORMATION_SCHEMA.TABLES")),
			Args: []any{name},
		}
	default:
		return Statement{
			SQL:  "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?",
			Args: []any{name},
		}
	}
}

func (d Dialect) CountRows(name string) Statement {
	return Statement{SQL: fmt.Sprintf("SELECT COUNT(*) FROM %s", d.Table(name))}
}
