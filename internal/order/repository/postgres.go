package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/database/postgres"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order/dto"
	"github.com/jmoiron/sqlx"
)

const orderColumns = `id, order_date, total_amount, status, customer_id, staff_id, closed_by, closed_at`

const itemColumns = `id, order_id, line_no, product_id, quantity, unit_price, line_total,
    fulfilled_qty, remaining_qty, created_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, o *model.Order) error {
	exec := postgres.Executor(ctx, r.DB)

	query := `
        INSERT INTO orders (` + orderColumns + `)
        VALUES (
            :id, :order_date, :total_amount, :status, :customer_id, :staff_id, :closed_by, :closed_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, exec, query, o); err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	itemQuery := `
        INSERT INTO order_items (` + itemColumns + `)
        VALUES (
            :id, :order_id, :line_no, :product_id, :quantity, :unit_price, :line_total,
            :fulfilled_qty, :remaining_qty, :created_at
        )
    `
	for i := range o.Items {
		if _, err := sqlx.NamedExecContext(ctx, exec, itemQuery, &o.Items[i]); err != nil {
			if postgres.IsForeignKeyViolation(err, "order_items_product_id_fkey") {
				return apperr.NewNotFound("order.Create", "product", o.Items[i].ProductID)
			}
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *PGRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Order, error) {
	return r.findOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) findOne(ctx context.Context, query, id string) (*model.Order, error) {
	var o model.Order
	err := sqlx.GetContext(ctx, postgres.Executor(ctx, r.DB), &o, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = string(f.Status)
	}
	if f.CustomerID != "" {
		conditions = append(conditions, "customer_id = :customer_id")
		args["customer_id"] = f.CustomerID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query, qargs, err := sqlx.Named(`SELECT `+orderColumns+` FROM orders`+whereClause+` ORDER BY order_date, id`, args)
	if err != nil {
		return nil, err
	}

	var orders []model.Order
	err = sqlx.SelectContext(ctx, postgres.Executor(ctx, r.DB), &orders, r.DB.Rebind(query), qargs...)
	return orders, err
}

func (r *PGRepository) FindReadyToClose(ctx context.Context) ([]model.Order, error) {
	query := `
        SELECT ` + orderColumns + ` FROM orders o
        WHERE o.status = $1
          AND NOT EXISTS (
              SELECT 1 FROM order_items oi
              WHERE oi.order_id = o.id AND oi.remaining_qty > 0
          )
          AND NOT EXISTS (
              SELECT 1 FROM requests r
              WHERE r.order_id = o.id AND r.status NOT IN ($2, $3)
          )
        ORDER BY o.order_date, o.id
    `
	var orders []model.Order
	err := sqlx.SelectContext(ctx, postgres.Executor(ctx, r.DB), &orders, query,
		string(model.OrderConfirmed), string(model.RequestRejected), string(model.RequestClosed))
	return orders, err
}

func (r *PGRepository) UpdateStatus(ctx context.Context, o *model.Order) error {
	query := `
        UPDATE orders SET
            status = :status,
            closed_by = :closed_by,
            closed_at = :closed_at
        WHERE id = :id
    `
	_, err := sqlx.NamedExecContext(ctx, postgres.Executor(ctx, r.DB), query, o)
	return err
}

func (r *PGRepository) FindItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	var items []model.OrderItem
	err := sqlx.SelectContext(ctx, postgres.Executor(ctx, r.DB), &items,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 ORDER BY line_no, id`, orderID)
	return items, err
}

func (r *PGRepository) FindOpenItemsByProductForUpdate(ctx context.Context, orderID, productID string) ([]model.OrderItem, error) {
	query := `
        SELECT ` + itemColumns + ` FROM order_items
        WHERE order_id = $1 AND product_id = $2 AND remaining_qty > 0
        ORDER BY line_no, id
        FOR UPDATE
    `
	var items []model.OrderItem
	err := sqlx.SelectContext(ctx, postgres.Executor(ctx, r.DB), &items, query, orderID, productID)
	return items, err
}

func (r *PGRepository) UpdateItemFulfillment(ctx context.Context, item *model.OrderItem) error {
	_, err := postgres.Executor(ctx, r.DB).ExecContext(ctx,
		`UPDATE order_items SET fulfilled_qty = $1, remaining_qty = $2 WHERE id = $3`,
		item.FulfilledQty, item.RemainingQty, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order item: %w", err)
	}
	return nil
}

func (r *PGRepository) CountOpenItems(ctx context.Context, orderID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, postgres.Executor(ctx, r.DB), &count,
		`SELECT count(*) FROM order_items WHERE order_id = $1 AND remaining_qty > 0`, orderID)
	return count, err
}

func (r *PGRepository) CountActiveRequests(ctx context.Context, orderID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, postgres.Executor(ctx, r.DB), &count,
		`SELECT count(*) FROM requests WHERE order_id = $1 AND status NOT IN ($2, $3)`,
		orderID, string(model.RequestRejected), string(model.RequestClosed))
	return count, err
}
