package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-fulfillment-service/internal/database/postgres"
	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/jmoiron/sqlx"
)

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	return r.getProduct(ctx, `SELECT id, sku, name, quantity, updated_at FROM products WHERE id = $1`, productID)
}

// GetProductForUpdate takes a row lock on the product for the rest of the
// surrounding transaction.
func (r *PGRepository) GetProductForUpdate(ctx context.Context, productID string) (*model.Product, error) {
	return r.getProduct(ctx, `SELECT id, sku, name, quantity, updated_at FROM products WHERE id = $1 FOR UPDATE`, productID)
}

func (r *PGRepository) getProduct(ctx context.Context, query, productID string) (*model.Product, error) {
	var p model.Product
	err := sqlx.GetContext(ctx, postgres.Executor(ctx, r.DB), &p, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGRepository) AdjustStockWithMovement(ctx context.Context, p *model.Product, movement *model.StockTransaction) error {
	exec := postgres.Executor(ctx, r.DB)

	// The CHECK (quantity >= 0) constraint on products backs up the use case check.
	_, err := exec.ExecContext(ctx,
		`UPDATE products SET quantity = $1, updated_at = $2 WHERE id = $3`,
		p.Quantity, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product quantity: %w", err)
	}

	insertQuery := `
        INSERT INTO stock_transactions (
            id, type, product_id, quantity, quantity_before, quantity_after,
            staff_id, reference, created_at
        )
        VALUES (
            :id, :type, :product_id, :quantity, :quantity_before, :quantity_after,
            :staff_id, :reference, :created_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, exec, insertQuery, movement); err != nil {
		return fmt.Errorf("failed to log movement: %w", err)
	}
	return nil
}

func (r *PGRepository) ListTransactions(ctx context.Context, f *dto.TransactionFilters) ([]model.StockTransaction, int, error) {
	var items []model.StockTransaction
	var count int

	conditions := []string{}
	args := map[string]interface{}{}

	if f.ProductID != "" {
		conditions = append(conditions, "product_id = :product_id")
		args["product_id"] = f.ProductID
	}
	if f.Type != "" {
		conditions = append(conditions, "type = :type")
		args["type"] = string(f.Type)
	}
	if f.StartDate != nil {
		conditions = append(conditions, "created_at >= :start_date")
		args["start_date"] = *f.StartDate
	}
	if f.EndDate != nil {
		conditions = append(conditions, "created_at < :end_date")
		args["end_date"] = *f.EndDate
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery, countArgs, err := sqlx.Named("SELECT count(*) FROM stock_transactions"+whereClause, args)
	if err != nil {
		return nil, 0, err
	}
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind(countQuery), countArgs...); err != nil {
		return nil, 0, err
	}

	query := "SELECT * FROM stock_transactions" + whereClause + " ORDER BY created_at DESC, id"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	nstmt, err := r.DB.PrepareNamedContext(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer nstmt.Close()

	err = nstmt.SelectContext(ctx, &items, args)
	return items, count, err
}

func (r *PGRepository) SumLedger(ctx context.Context, productID string) (int64, int, error) {
	var row struct {
		Total   int64 `db:"total"`
		Entries int   `db:"entries"`
	}
	query := `
        SELECT
            COALESCE(SUM(CASE WHEN type = 'OUT' THEN -quantity ELSE quantity END), 0) AS total,
            COUNT(*) AS entries
        FROM stock_transactions
        WHERE product_id = $1
    `
	if err := sqlx.GetContext(ctx, postgres.Executor(ctx, r.DB), &row, query, productID); err != nil {
		return 0, 0, err
	}
	return row.Total, row.Entries, nil
}
