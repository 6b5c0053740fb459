package adapters

import (
	"context"

	"gorm.io/gorm"
)

// GORMAdapter implements DBAdapter for gorm.DB.
// Statements are passed through as raw SQL; gorm only provides the session and transaction handling.
type GORMAdapter struct {
	db *gorm.DB
}

// NewGORMAdapter creates a new GORM adapter.
func NewGORMAdapter(db *gorm.DB) *GORMAdapter {
	return &GORMAdapter{db: db}
}

// BeginTx starts a serializable transaction.
func (g *GORMAdapter) BeginTx(ctx context.Context) (DBTx, error) {
	tx := g.db.WithContext(ctx).Begin(serializableTxOptions())
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &gormTx{tx: tx}, nil
}

// Query executes a query outside any explicit transaction.
func (g *GORMAdapter) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := g.db.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// gormTx wraps a gorm transaction session to implement the DBTx interface.
type gormTx struct {
	tx *gorm.DB
}

// Query executes a query within the transaction and returns wrapped rows.
func (g *gormTx) Query(ctx context.Context, query string) (DBRows, error) {
	rows, err := g.tx.WithContext(ctx).Raw(query).Rows()
	if err != nil {
		return nil, err
	}

	return &stdRows{rows: rows}, nil
}

// Exec executes a statement within the transaction and returns wrapped result.
func (g *gormTx) Exec(ctx context.Context, query string) (DBResult, error) {
	result := g.tx.WithContext(ctx).Exec(query)
	if result.Error != nil {
		return nil, result.Error
	}

	return gormResult{rowsAffected: result.RowsAffected}, nil
}

// Commit commits the transaction.
func (g *gormTx) Commit(_ context.Context) error {
	return g.tx.Commit().Error
}

// Rollback aborts the transaction.
func (g *gormTx) Rollback(_ context.Context) error {
	return g.tx.Rollback().Error
}

// gormResult carries the affected row count reported by gorm.
type gormResult struct {
	rowsAffected int64
}

// RowsAffected returns the number of rows affected by the command.
func (g gormResult) RowsAffected() (int64, error) {
	return g.rowsAffected, nil
}
