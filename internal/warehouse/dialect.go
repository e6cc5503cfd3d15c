package warehouse

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/sparkify-dwh/pkg/config"
)

// Kind names a supported warehouse engine.
type Kind string

const (
	KindRedshift Kind = config.DriverRedshift
	KindPostgres Kind = config.DriverPostgres
	KindSQLite   Kind = config.DriverSQLite
	KindBigQuery Kind = config.DriverBigQuery
)

// ColumnKind is the engine-neutral column type.
type ColumnKind int

const (
	TypeVarchar ColumnKind = iota
	TypeInteger
	TypeBigInt
	TypeSmallInt
	TypeDouble
	TypeTimestamp
)

type ColumnType struct {
	Kind   ColumnKind
	Length int
}

func Varchar(length int) ColumnType {
	return ColumnType{Kind: TypeVarchar, Length: length}
}

var (
	Integer   = ColumnType{Kind: TypeInteger}
	BigInt    = ColumnType{Kind: TypeBigInt}
	SmallInt  = ColumnType{Kind: TypeSmallInt}
	Double    = ColumnType{Kind: TypeDouble}
	Timestamp = ColumnType{Kind: TypeTimestamp}
)

// DatePart is a calendar component extracted from a timestamp.
type DatePart string

const (
	PartHour    DatePart = "hour"
	PartDay     DatePart = "day"
	PartWeek    DatePart = "week"
	PartMonth   DatePart = "month"
	PartYear    DatePart = "year"
	PartWeekday DatePart = "weekday"
)

// Dialect renders the engine specific fragments of otherwise portable SQL.
type Dialect struct {
	Kind Kind
	// Dataset qualifies every table on BigQuery.
	Dataset string
}

// DialectFor resolves the dialect of a configured driver.
func DialectFor(driver, dataset string) (Dialect, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(driver))) {
	case KindRedshift:
		return Dialect{Kind: KindRedshift}, nil
	case KindPostgres:
		return Dialect{Kind: KindPostgres}, nil
	case KindSQLite:
		return Dialect{Kind: KindSQLite}, nil
	case KindBigQuery:
		if strings.TrimSpace(dataset) == "" {
			return Dialect{}, fmt.Errorf("bigquery dialect requires a dataset")
		}
		return Dialect{Kind: KindBigQuery, Dataset: strings.TrimSpace(dataset)}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported warehouse driver %q", driver)
	}
}

func (d Dialect) String() string {
	return string(d.Kind)
}

// QuoteIdent quotes a single identifier.
func (d Dialect) QuoteIdent(name string) string {
	if d.Kind == KindBigQuery {
		return "`" + strings.ReplaceAll(name, "`", "") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Table returns the quoted, fully qualified table reference.
func (d Dialect) Table(name string) string {
	if d.Kind == KindBigQuery {
		return d.QuoteIdent(d.Dataset + "." + name)
	}
	return d.QuoteIdent(name)
}

// QuoteLiteral renders s as a single-quoted string literal.
func (d Dialect) QuoteLiteral(s string) string {
	if d.Kind == KindBigQuery {
		escaped := strings.ReplaceAll(s, `\`, `\\`)
		return "'" + strings.ReplaceAll(escaped, `'`, `\'`) + "'"
	}
	return "'" + strings.ReplaceAll(s, `'`, `''`) + "'"
}

func (d Dialect) ColumnType(t ColumnType) string {
	switch d.Kind {
	case KindBigQuery:
		switch t.Kind {
		case TypeVarchar:
			return "STRING"
		case TypeInteger, TypeBigInt, TypeSmallInt:
			return "INT64"
		case TypeDouble:
			return "FLOAT64"
		case TypeTimestamp:
			return "TIMESTAMP"
		}
	case KindSQLite:
		switch t.Kind {
		case TypeVarchar:
			return "TEXT"
		case TypeInteger, TypeBigInt, TypeSmallInt:
			return "INTEGER"
		case TypeDouble:
			return "REAL"
		case TypeTimestamp:
			return "TIMESTAMP"
		}
	default:
		switch t.Kind {
		case TypeVarchar:
			if t.Length > 0 {
				return fmt.Sprintf("VARCHAR(%d)", t.Length)
			}
			return "VARCHAR(256)"
		case TypeInteger:
			return "INTEGER"
		case TypeBigInt:
			return "BIGINT"
		case TypeSmallInt:
			return "SMALLINT"
		case TypeDouble:
			return "DOUBLE PRECISION"
		case TypeTimestamp:
			return "TIMESTAMP"
		}
	}
	return "TEXT"
}

// IntDiv renders integer division truncating toward zero.
func (d Dialect) IntDiv(expr string, divisor int) string {
	if d.Kind == KindBigQuery {
		return fmt.Sprintf("DIV(%s, %d)", expr, divisor)
	}
	return fmt.Sprintf("(%s / %d)", expr, divisor)
}

// EpochMillisToTimestamp converts an epoch-millisecond column to a UTC
// timestamp truncated to whole seconds.
func (d Dialect) EpochMillisToTimestamp(expr string) string {
	seconds := d.IntDiv(expr, 1000)
	switch d.Kind {
	case KindBigQuery:
		return fmt.Sprintf("TIMESTAMP_SECONDS(%s)", seconds)
	case KindSQLite:
		return fmt.Sprintf("datetime(%s, 'unixepoch')", seconds)
	default:
		return fmt.Sprintf("(TIMESTAMP 'epoch' + %s * INTERVAL '1 second')", seconds)
	}
}

// DatePart extracts an integer calendar component. Week is ISO-8601 and
// weekday counts from 0 = Sunday on every engine.
func (d Dialect) DatePart(part DatePart, ts string) string {
	switch d.Kind {
	case KindBigQuery:
		switch part {
		case PartWeek:
			return fmt.Sprintf("EXTRACT(ISOWEEK FROM %s)", ts)
		case PartWeekday:
			return fmt.Sprintf("(EXTRACT(DAYOFWEEK FROM %s) - 1)", ts)
		default:
			return fmt.Sprintf("EXTRACT(%s FROM %s)", strings.ToUpper(string(part)), ts)
		}
	case KindSQLite:
		switch part {
		case PartHour:
			return fmt.Sprintf("CAST(strftime('%%H', %s) AS INTEGER)", ts)
		case PartDay:
			return fmt.Sprintf("CAST(strftime('%%d', %s) AS INTEGER)", ts)
		case PartWeek:
			// day-of-year of the week's Thursday, in whole weeks
			return fmt.Sprintf("((CAST(strftime('%%j', date(%s, '-3 days', 'weekday 4')) AS INTEGER) - 1) / 7 + 1)", ts)
		case PartMonth:
			return fmt.Sprintf("CAST(strftime('%%m', %s) AS INTEGER)", ts)
		case PartYear:
			return fmt.Sprintf("CAST(strftime('%%Y', %s) AS INTEGER)", ts)
		case PartWeekday:
			return fmt.Sprintf("CAST(strftime('%%w', %s) AS INTEGER)", ts)
		}
	default:
		field := string(part)
		if part == PartWeekday {
			field = "dow"
		}
		return fmt.Sprintf("CAST(EXTRACT(%s FROM %s) AS INTEGER)", field, ts)
	}
	return ts
}

// Collate forces byte-wise ordering of a string expression.
func (d Dialect) Collate(expr string) string {
	if d.Kind == KindPostgres {
		return expr + ` COLLATE "C"`
	}
	return expr
}

// EnforcesForeignKeys reports whether FK constraints are checked on write.
func (d Dialect) EnforcesForeignKeys() bool {
	return d.Kind == KindPostgres || d.Kind == KindSQLite
}

// ConstraintSuffix is appended to PRIMARY KEY and FOREIGN KEY clauses.
func (d Dialect) ConstraintSuffix() string {
	if d.Kind == KindBigQuery {
		return " NOT ENFORCED"
	}
	return ""
}

// Physical describes Redshift distribution and sort options.
type Physical struct {
	DistStyleAll bool
	DistKey      string
	SortKey      string
}

// TableOptions renders physical options; only Redshift has any.
func (d Dialect) TableOptions(p Physical) string {
	if d.Kind != KindRedshift {
		return ""
	}
	var parts []string
	if p.DistStyleAll {
		parts = append(parts, "DISTSTYLE ALL")
	}
	if p.DistKey != "" {
		parts = append(parts, fmt.Sprintf("DISTKEY(%s)", p.DistKey))
	}
	if p.SortKey != "" {
		parts = append(parts, fmt.Sprintf("SORTKEY(%s)", p.SortKey))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// SupportsCopy reports whether the engine can load staging server side.
func (d Dialect) SupportsCopy() bool {
	return d.Kind == KindRedshift
}
