//go:build !sqlite

package storage

const sqliteAvailable = false

func newSQLiteStore(_ string) (Store, error) {
	return nil, ErrSQLiteUnavailable
}
