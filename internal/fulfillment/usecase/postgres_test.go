package usecase

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/database/postgres"
	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment"
	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment/dto"
	invRepo "github.com/fekuna/omnipos-fulfillment-service/internal/inventory/repository"
	invUC "github.com/fekuna/omnipos-fulfillment-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order"
	ordDto "github.com/fekuna/omnipos-fulfillment-service/internal/order/dto"
	ordRepo "github.com/fekuna/omnipos-fulfillment-service/internal/order/repository"
	ordUC "github.com/fekuna/omnipos-fulfillment-service/internal/order/usecase"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request"
	reqDto "github.com/fekuna/omnipos-fulfillment-service/internal/request/dto"
	reqRepo "github.com/fekuna/omnipos-fulfillment-service/internal/request/repository"
	reqUC "github.com/fekuna/omnipos-fulfillment-service/internal/request/usecase"
	"github.com/fekuna/omnipos-fulfillment-service/internal/store/memory"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run the use cases against a real database so row locks and
// constraints are exercised. They need POSTGRES_DSN and create a throwaway
// schema per test.

type pgFixture struct {
	db       *sqlx.DB
	requests request.UseCase
	orders   order.UseCase
	uc       fulfillment.UseCase
}

func withSearchPath(dsn, schema string) string {
	if strings.Contains(dsn, "://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}

func setupPostgres(t *testing.T) *pgFixture {
	t.Helper()
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" || testing.Short() {
		t.Skip("POSTGRES_DSN not set")
	}

	admin, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	schema := "fulfillment_it_" + strings.ReplaceAll(uuid.New().String(), "-", "")
	_, err = admin.Exec(`CREATE SCHEMA ` + schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(`DROP SCHEMA ` + schema + ` CASCADE`)
		_ = admin.Close()
	})

	db, err := sqlx.Connect("pgx", withSearchPath(dsn, schema))
	require.NoError(t, err)
	db.SetMaxOpenConns(16)
	t.Cleanup(func() { _ = db.Close() })

	ddl, err := os.ReadFile("../../../migrations/000001_init.up.sql")
	require.NoError(t, err)
	for _, stmt := range strings.Split(string(ddl), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	log := logger.NewNop()
	events := &memory.EventLog{}
	tm := postgres.NewTxManager(db, 5, 10*time.Second, log)
	requests := reqRepo.NewPGRepository(db)
	orders := ordRepo.NewPGRepository(db)
	inv := invUC.NewInventoryUseCase(invRepo.NewPGRepository(db), tm, nil, time.Minute, events, log)

	return &pgFixture{
		db:       db,
		requests: reqUC.NewRequestUseCase(requests, orders, tm, events, log),
		orders:   ordUC.NewOrderUseCase(orders, tm, events, log),
		uc:       NewFulfillmentUseCase(requests, orders, inv, tm, events, log),
	}
}

func (f *pgFixture) product(t *testing.T, id string, qty int64) {
	t.Helper()
	_, err := f.db.Exec(`INSERT INTO products (id, sku, name, quantity) VALUES ($1, $2, $3, $4)`, id, "SKU-"+id, id, qty)
	require.NoError(t, err)
}

func (f *pgFixture) onHand(t *testing.T, id string) int64 {
	t.Helper()
	var qty int64
	require.NoError(t, f.db.Get(&qty, `SELECT quantity FROM products WHERE id = $1`, id))
	return qty
}

func (f *pgFixture) approvedRequest(t *testing.T, orderID string, lines ...line) *model.Request {
	t.Helper()
	ctx := context.Background()
	in := &reqDto.CreateRequestInput{OrderID: orderID, StaffID: "tech-1"}
	for _, l := range lines {
		in.Items = append(in.Items, reqDto.CreateRequestItemInput{ProductID: l.product, Quantity: l.qty})
	}
	req, err := f.requests.CreateRequest(ctx, in)
	require.NoError(t, err)
	_, err = f.requests.Approve(ctx, req.ID, "mgr-1")
	require.NoError(t, err)
	return req
}

func TestPostgres_ConcurrentSameProduct(t *testing.T) {
	f := setupPostgres(t)
	f.product(t, "P", 10)
	ctx := context.Background()

	a := f.approvedRequest(t, "", line{"P", 6})
	b := f.approvedRequest(t, "", line{"P", 6})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, req := range []*model.Request{a, b} {
		wg.Add(1)
		go func(i int, itemID string) {
			defer wg.Done()
			_, errs[i] = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: itemID, Quantity: 6, StaffID: "wh-1"})
		}(i, req.Items[0].ID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrInsufficientStock)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, int64(4), f.onHand(t, "P"))

	var rows int
	require.NoError(t, f.db.Get(&rows, `SELECT count(*) FROM stock_transactions WHERE product_id = 'P'`))
	assert.Equal(t, 1, rows)
}

func TestPostgres_CascadeUnderContention(t *testing.T) {
	f := setupPostgres(t)
	f.product(t, "P", 20)
	f.product(t, "Q", 20)
	ctx := context.Background()

	o, err := f.orders.CreateOrder(ctx, &ordDto.CreateOrderInput{
		CustomerID: "cust-1",
		Items: []ordDto.CreateOrderItemInput{
			{ProductID: "P", Quantity: 4, UnitPrice: decimal.NewFromInt(1)},
			{ProductID: "Q", Quantity: 4, UnitPrice: decimal.NewFromInt(1)},
		},
	})
	require.NoError(t, err)
	r1 := f.approvedRequest(t, o.ID, line{"P", 4}, line{"Q", 2})
	r2 := f.approvedRequest(t, o.ID, line{"Q", 2})

	items := []string{r1.Items[0].ID, r1.Items[1].ID, r2.Items[0].ID}
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failures []error
	for _, id := range items {
		for i := 0; i < 2; i++ {
			wg.Add(1)
			go func(itemID string) {
				defer wg.Done()
				qty := int64(1)
				if itemID == items[0] {
					qty = 2
				}
				if _, err := f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: itemID, Quantity: qty}); err != nil {
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
				}
			}(id)
		}
	}
	wg.Wait()
	require.Empty(t, failures)

	assert.Equal(t, int64(16), f.onHand(t, "P"))
	assert.Equal(t, int64(16), f.onHand(t, "Q"))

	got, err := f.orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	for _, it := range got.Items {
		assert.Zero(t, it.RemainingQty, "line %d", it.LineNo)
		assert.Equal(t, it.Quantity, it.FulfilledQty+it.RemainingQty)
	}

	ready, err := f.orders.ListReadyToClose(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, o.ID, ready[0].ID)
}

func TestPostgres_UnknownIDsAreNotFound(t *testing.T) {
	f := setupPostgres(t)
	f.product(t, "P", 10)
	ctx := context.Background()

	_, err := f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: "ghost", Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.requests.Approve(ctx, "ghost", "mgr-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.orders.GetOrder(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.requests.CreateRequest(ctx, &reqDto.CreateRequestInput{
		Items: []reqDto.CreateRequestItemInput{{ProductID: "P", Quantity: 1}, {ProductID: "ghost", Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.orders.CreateOrder(ctx, &ordDto.CreateOrderInput{
		CustomerID: "cust-1",
		Items:      []ordDto.CreateOrderItemInput{{ProductID: "ghost", Quantity: 1, UnitPrice: decimal.NewFromInt(1)}},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
