package database

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"msgboard/internal/config"
)

// Dialect captures the SQL differences between the supported drivers.
type Dialect struct {
	Driver string
	// Returning is true when INSERT ... RETURNING is available.
	Returning   bool
	placeholder sq.PlaceholderFormat
	quoteLeft   string
	quoteRight  string
}

// DialectFor returns the dialect of a DB_DRIVER value.
func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case config.DriverPostgres:
		return Dialect{Driver: driver, Returning: true, placeholder: sq.Dollar, quoteLeft: `"`, quoteRight: `"`}, nil
	case config.DriverSQLite:
		return Dialect{Driver: driver, Returning: true, placeholder: sq.Question, quoteLeft: `"`, quoteRight: `"`}, nil
	case config.DriverMySQL:
		return Dialect{Driver: driver, Returning: false, placeholder: sq.Question, quoteLeft: "`", quoteRight: "`"}, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// Quote quotes an identifier. "user" is reserved in PostgreSQL.
func (d Dialect) Quote(ident string) string {
	return d.quoteLeft + ident + d.quoteRight
}

// Builder returns a statement builder using the dialect's placeholders.
func (d Dialect) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.placeholder)
}
