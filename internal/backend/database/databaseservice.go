package database

import "context"

type DatabaseService interface {
	// CreateDatabase creates the schema if missing and seeds the lookup sentinels. Safe to call on every start.
	CreateDatabase(ctx context.Context) error
	DoesDatabaseExist() bool
	Close() error

	// LookupOrInsert returns the id of value in a lookup table, inserting it when absent.
	LookupOrInsert(ctx context.Context, table LookupTable, value string) (int64, error)

	// All cat operations are scoped to the owner identified by bicmid.
	ListCats(ctx context.Context, bicmid string, offset int) ([]*Cat, error)
	CountCats(ctx context.Context, bicmid string) (int, error)
	// DeleteCat returns the number of removed rows; 0 when id belongs to another owner.
	DeleteCat(ctx context.Context, bicmid string, id int64) (int64, error)
	// SaveCat resolves owner and origin and inserts the cat in a single transaction.
	SaveCat(ctx context.Context, bicmid string, url string) (int64, error)
}
