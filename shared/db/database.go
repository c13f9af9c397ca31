package db

import (
	"database/sql"
)

// Database is a connection that owns its schema: Connect opens it and
// brings the schema up to date.
type Database interface {
	Connect() error
	Close() error
	DB() *sql.DB
}
