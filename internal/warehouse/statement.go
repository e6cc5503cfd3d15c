package warehouse

import (
	"fmt"
	"strings"
)

// Statement is SQL text with `?` placeholders and the values bound to them.
type Statement struct {
	SQL  string
	Args []any
}

// Fragment is a partial statement: a predicate, a relation or an expression.
type Fragment = Statement

// Frag builds a fragment; the number of `?` must match len(args).
func Frag(sql string, args ...any) Fragment {
	return Fragment{SQL: sql, Args: args}
}

// Select composes a single SELECT. Columns are trusted expressions; values
// only enter through the Args of From, Joins and Where.
type Select struct {
	Distinct bool
	Columns  []string
	From     Fragment
	Joins    []Fragment
	Where    []Fragment
	GroupBy  []string
	Having   string
	OrderBy  []string
}

// Build renders the select with its args in placeholder order.
func (s Select) Build() Statement {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if s.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(s.Columns, ", "))

	b.WriteString("\nFROM ")
	b.WriteString(s.From.SQL)
	args = append(args, s.From.Args...)

	for _, j := range s.Joins {
		b.WriteString("\n")
		b.WriteString(j.SQL)
		args = append(args, j.Args...)
	}

	if len(s.Where) > 0 {
		preds := make([]string, 0, len(s.Where))
		for _, w := range s.Where {
			preds = append(preds, "("+w.SQL+")")
			args = append(args, w.Args...)
		}
		b.WriteString("\nWHERE ")
		b.WriteString(strings.Join(preds, " AND "))
	}

	if len(s.GroupBy) > 0 {
		b.WriteString("\nGROUP BY ")
		b.WriteString(strings.Join(s.GroupBy, ", "))
	}
	if s.Having != "" {
		b.WriteString("\nHAVING ")
		b.WriteString(s.Having)
	}

	if len(s.OrderBy) > 0 {
		b.WriteString("\nORDER BY ")
		b.WriteString(strings.Join(s.OrderBy, ", "))
	}

	return Statement{SQL: b.String(), Args: args}
}

// Subquery wraps a select as an aliased relation usable in From or Joins.
func Subquery(s Select, alias string) Fragment {
	inner := s.Build()
	return Fragment{SQL: fmt.Sprintf("(\n%s\n) %s", inner.SQL, alias), Args: inner.Args}
}

// InsertSelect renders INSERT INTO table (columns) SELECT ...
type InsertSelect struct {
	Table   string
	Columns []string
	Query   Select
}

func (i InsertSelect) Build(d Dialect) Statement {
	q := i.Query.Build()
	return Statement{
		SQL:  fmt.Sprintf("INSERT INTO %s (%s)\n%s", d.Table(i.Table), strings.Join(i.Columns, ", "), q.SQL),
		Args: q.Args,
	}
}

// Placeholders counts `?` outside quoted literals and identifiers.
func Placeholders(sql string) int {
	n := 0
	scanPlaceholders(sql, func(int) { n++ })
	return n
}

// scanPlaceholders calls fn with the byte offset of each bind placeholder.
func scanPlaceholders(sql string, fn func(offset int)) {
	var quote byte
	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if quote != 0 {
			switch {
			case c == '\\' && quote == '\'':
				i++
			case c == quote:
				if i+1 < len(sql) && sql[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '?':
			fn(i)
		}
	}
}
