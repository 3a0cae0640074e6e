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
	"github.com/fekuna/omnipos-fulfillment-service/internal/request/dto"
	"github.com/jmoiron/sqlx"
)

const requestColumns = `id, request_date, status, order_id, staff_id, description,
    approved_by, approved_at, closed_by, closed_at`

const itemColumns = `id, request_id, line_no, product_id, quantity, fulfilled_qty, remaining_qty, created_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

func (r *PGRepository) Create(ctx context.Context, req *model.Request) error {
	exec := postgres.Executor(ctx, r.DB)

	query := `
        INSERT INTO requests (` + requestColumns + `)
        VALUES (
            :id, :request_date, :status, :order_id, :staff_id, :description,
            :approved_by, :approved_at, :closed_by, :closed_at
        )
    `
	if _, err := sqlx.NamedExecContext(ctx, exec, query, req); err != nil {
		return fmt.Errorf("failed to insert request: %w", err)
	}

	itemQuery := `
        INSERT INTO request_items (` + itemColumns + `)
        VALUES (
            :id, :request_id, :line_no, :product_id, :quantity, :fulfilled_qty, :remaining_qty, :created_at
        )
    `
	for i := range req.Items {
		if _, err := sqlx.NamedExecContext(ctx, exec, itemQuery, &req.Items[i]); err != nil {
			if postgres.IsForeignKeyViolation(err, "request_items_product_id_fkey") {
				return apperr.NewNotFound("request.Create", "product", req.Items[i].ProductID)
			}
			return fmt.Errorf("failed to insert request item: %w", err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Request, error) {
	return r.findOne(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1`, id)
}

func (r *PGRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Request, error) {
	return r.findOne(ctx, `SELECT `+requestColumns+` FROM requests WHERE id = $1 FOR UPDATE`, id)
}

func (r *PGRepository) findOne(ctx context.Context, query, id string) (*model.Request, error) {
	var req model.Request
	err := sqlx.GetContext(ctx, postgres.Executor(ctx, r.DB), &req, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.RequestFilters) ([]model.Request, error) {
	conditions := []string{}
	args := map[string]interface{}{}

	if f.Status != "" {
		conditions = append(conditions, "status = :status")
		args["status"] = string(f.Status)
	}
	if f.OrderID != "" {
		conditions = append(conditions, "order_id = :order_id")
		args["order_id"] = f.OrderID
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query, qargs, err := sqlx.Named(`SELECT `+requestColumns+` FROM requests`+whereClause+` ORDER BY request_date, id`, args)
	if err != nil {
		return nil, err
	}

	var items []model.Request
	err = sqlx.SelectContext(ctx, postgres.Executor(ctx, r.DB), &items, r.DB.Rebind(query), qargs...)
	return items, err
}

func (r *PGRepository) FindReadyToClose(ctx context.Context) ([]model.Request, error) {
	query := `
        SELECT ` + requestColumns + ` FROM requests r
        WHERE r.status = $1
          AND NOT EXISTS (
              SELECT 1 FROM request_items ri
              WHERE ri.request_id = r.id AND ri.remaining_qty > 0
          )
        ORDER BY r.request_date, r.id
    `
	var items []model.Request
	err := sqlx.SelectContext(ctx, postgres.Executor(ctx, r.DB), &items, query, string(model.RequestApproved))
	return items, err
}

func (r *PGRepository) UpdateStatus(ctx context.Context, req *model.Request) error {
	query := `
        UPDATE requests SET
            status = :status,
            approved_by = :approved_by,
            approved_at = :approved_at,
            closed_by = :closed_by,
            closed_at = :closed_at
        WHERE id = :id
    `
	_, err := sqlx.NamedExecContext(ctx, postgres.Executor(ctx, r.DB), query, req)
	return err
}

func (r *PGRepository) FindItems(ctx context.Context, requestID string) ([]model.RequestItem, error) {
	var items []model.RequestItem
	err := sqlx.SelectContext(ctx, postgres.Executor(ctx, r.DB), &items,
		`SELECT `+itemColumns+` FROM request_items WHERE request_id = $1 ORDER BY line_no, id`, requestID)
	return items, err
}

func (r *PGRepository) FindItemByID(ctx context.Context, itemID string) (*model.RequestItem, error) {
	return r.findItem(ctx, `SELECT `+itemColumns+` FROM request_items WHERE id = $1`, itemID)
}

func (r *PGRepository) FindItemByIDForUpdate(ctx context.Context, itemID string) (*model.RequestItem, error) {
	return r.findItem(ctx, `SELECT `+itemColumns+` FROM request_items WHERE id = $1 FOR UPDATE`, itemID)
}

func (r *PGRepository) findItem(ctx context.Context, query, id string) (*model.RequestItem, error) {
	var item model.RequestItem
	err := sqlx.GetContext(ctx, postgres.Executor(ctx, r.DB), &item, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *PGRepository) UpdateItemFulfillment(ctx context.Context, item *model.RequestItem) error {
	_, err := postgres.Executor(ctx, r.DB).ExecContext(ctx,
		`UPDATE request_items SET fulfilled_qty = $1, remaining_qty = $2 WHERE id = $3`,
		item.FulfilledQty, item.RemainingQty, item.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update request item: %w", err)
	}
	return nil
}

func (r *PGRepository) CountOpenItems(ctx context.Context, requestID string) (int, error) {
	var count int
	err := sqlx.GetContext(ctx, postgres.Executor(ctx, r.DB), &count,
		`SELECT count(*) FROM request_items WHERE request_id = $1 AND remaining_qty > 0`, requestID)
	return count, err
}
