package ledger

import (
	"context"
	"fmt"
	"strings"
)

// Store is the durable append-only record sequence.
type Store interface {
	// Recent returns up to n of the newest records, oldest first.
	Recent(ctx context.Context, n int) ([]Record, error)
	// Append persists one record. A failed append leaves prior records intact.
	Append(ctx context.Context, rec Record) error
	// All returns every record in append order.
	All(ctx context.Context) ([]Record, error)
	Close() error
}

// Backend names a store implementation.
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
)

// OpenStore opens the configured backend at path.
func OpenStore(backend, path string) (Store, error) {
	switch Backend(strings.ToLower(strings.TrimSpace(backend))) {
	case BackendJSON, "":
		return NewJSONStore(path), nil
	case BackendSQLite:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", backend)
	}
}

func tail(records []Record, n int) []Record {
	if n <= 0 || len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}
