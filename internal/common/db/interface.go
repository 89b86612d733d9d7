package db

import "context"

// Querier runs read statements.
type Querier interface {
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
}

// Database is a pooled relational connection. Challenge content is
// provisioned out of band, so the service only reads.
type Database interface {
	Querier
	Ping(ctx context.Context) error
	Close() error
}

// Rows is an iterator over a query result.
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Close() error
	Err() error
}

// Row is the result of QueryRow.
type Row interface {
	Scan(dest ...interface{}) error
}
