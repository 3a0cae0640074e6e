package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment"
	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment/dto"
	invDto "github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	invUC "github.com/fekuna/omnipos-fulfillment-service/internal/inventory/usecase"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order"
	ordDto "github.com/fekuna/omnipos-fulfillment-service/internal/order/dto"
	ordUC "github.com/fekuna/omnipos-fulfillment-service/internal/order/usecase"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request"
	reqDto "github.com/fekuna/omnipos-fulfillment-service/internal/request/dto"
	reqUC "github.com/fekuna/omnipos-fulfillment-service/internal/request/usecase"
	"github.com/fekuna/omnipos-fulfillment-service/internal/store/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *memory.Store
	events   *memory.EventLog
	requests request.UseCase
	orders   order.UseCase
	uc       fulfillment.UseCase
}

func setup(t *testing.T, products ...model.Product) *fixture {
	t.Helper()
	s := memory.NewStore()
	for _, p := range products {
		s.PutProduct(p)
	}
	log := logger.NewNop()
	events := &memory.EventLog{}

	inv := invUC.NewInventoryUseCase(s.Inventory(), s, nil, time.Minute, events, log)
	return &fixture{
		store:    s,
		events:   events,
		requests: reqUC.NewRequestUseCase(s.Requests(), s.Orders(), s, events, log),
		orders:   ordUC.NewOrderUseCase(s.Orders(), s, events, log),
		uc:       NewFulfillmentUseCase(s.Requests(), s.Orders(), inv, s, events, log),
	}
}

type line struct {
	product string
	qty     int64
}

// approvedRequest creates and approves a request, optionally against orderID.
func (f *fixture) approvedRequest(t *testing.T, orderID string, lines ...line) *model.Request {
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

func (f *fixture) order(t *testing.T, lines ...line) *model.Order {
	t.Helper()
	in := &ordDto.CreateOrderInput{CustomerID: "cust-1", StaffID: "sales-1"}
	for _, l := range lines {
		in.Items = append(in.Items, ordDto.CreateOrderItemInput{ProductID: l.product, Quantity: l.qty, UnitPrice: decimal.NewFromInt(1)})
	}
	o, err := f.orders.CreateOrder(context.Background(), in)
	require.NoError(t, err)
	return o
}

func (f *fixture) onHand(t *testing.T, productID string) int64 {
	t.Helper()
	p, err := f.store.Inventory().GetProduct(context.Background(), productID)
	require.NoError(t, err)
	return p.Quantity
}

func (f *fixture) ledgerLen(t *testing.T, productID string) int {
	t.Helper()
	_, total, err := f.store.Inventory().ListTransactions(context.Background(), &invDto.TransactionFilters{ProductID: productID})
	require.NoError(t, err)
	return total
}

func (f *fixture) request(t *testing.T, id string) *model.Request {
	t.Helper()
	req, err := f.requests.GetRequest(context.Background(), id)
	require.NoError(t, err)
	return req
}

func assertTriad(t *testing.T, items []model.RequestItem) {
	t.Helper()
	for _, it := range items {
		assert.Equal(t, it.Quantity, it.FulfilledQty+it.RemainingQty, "item %s", it.ID)
	}
}

func TestFulfill_FullItemClosesRequest(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 10})
	req := f.approvedRequest(t, "", line{"P", 6})

	res, err := f.uc.Fulfill(context.Background(), &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 6, StaffID: "wh-1"})
	require.NoError(t, err)

	assert.Equal(t, int64(4), f.onHand(t, "P"))
	assert.Equal(t, int64(6), res.Item.FulfilledQty)
	assert.Zero(t, res.Item.RemainingQty)
	assert.True(t, res.RequestClosed)

	assert.Equal(t, model.MovementOut, res.Transaction.Type)
	assert.Equal(t, int64(6), res.Transaction.Quantity)
	assert.Equal(t, "Fulfill request "+req.ID, res.Transaction.Reference)
	assert.Equal(t, "wh-1", res.Transaction.StaffID)

	got := f.request(t, req.ID)
	assert.Equal(t, model.RequestClosed, got.Status)
	assert.NotNil(t, got.ClosedAt)
	assertTriad(t, got.Items)

	assert.Equal(t, []string{model.EventRequestApproved, model.EventStockMoved, model.EventRequestClosed}, f.events.Types())
}

func TestFulfill_ExceedsRemaining(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 10})
	req := f.approvedRequest(t, "", line{"P", 6})

	_, err := f.uc.Fulfill(context.Background(), &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 7, StaffID: "wh-1"})
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "exceeds remaining")

	assert.Equal(t, int64(10), f.onHand(t, "P"))
	assert.Zero(t, f.ledgerLen(t, "P"))
	got := f.request(t, req.ID)
	assert.Equal(t, model.RequestApproved, got.Status)
	assert.Equal(t, int64(6), got.Items[0].RemainingQty)
}

func TestFulfill_InsufficientStock(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 3})
	req := f.approvedRequest(t, "", line{"P", 5})

	_, err := f.uc.Fulfill(context.Background(), &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 5, StaffID: "wh-1"})
	require.ErrorIs(t, err, apperr.ErrInsufficientStock)

	assert.Equal(t, int64(3), f.onHand(t, "P"))
	assert.Zero(t, f.ledgerLen(t, "P"))
	got := f.request(t, req.ID)
	assert.Zero(t, got.Items[0].FulfilledQty)
	assert.Equal(t, int64(5), got.Items[0].RemainingQty)
}

func TestFulfill_StockInThenFulfill(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 3})
	ctx := context.Background()
	inv := invUC.NewInventoryUseCase(f.store.Inventory(), f.store, nil, time.Minute, nil, logger.NewNop())

	tx, err := inv.AddStockIn(ctx, &invDto.StockInInput{ProductID: "P", Quantity: 20, StaffID: "wh-1", SupplierID: "sup-1", Note: "restock"})
	require.NoError(t, err)
	assert.Equal(t, model.MovementIn, tx.Type)
	assert.Equal(t, int64(20), tx.Quantity)
	assert.Equal(t, int64(23), f.onHand(t, "P"))
	assert.Equal(t, 1, f.ledgerLen(t, "P"))

	req := f.approvedRequest(t, "", line{"P", 5})
	_, err = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 5})
	require.NoError(t, err)
	assert.Equal(t, int64(18), f.onHand(t, "P"))
}

func TestFulfill_Validation(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 10})
	ctx := context.Background()

	_, err := f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: "ghost", Quantity: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument, "quantity is checked before existence")

	_, err = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: "ghost", Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestFulfill_RequiresApprovedRequest(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 10})
	ctx := context.Background()

	pending, err := f.requests.CreateRequest(ctx, &reqDto.CreateRequestInput{
		Items: []reqDto.CreateRequestItemInput{{ProductID: "P", Quantity: 2}},
	})
	require.NoError(t, err)

	_, err = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: pending.Items[0].ID, Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = f.requests.Reject(ctx, pending.ID, "mgr-1")
	require.NoError(t, err)
	_, err = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: pending.Items[0].ID, Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	assert.Equal(t, int64(10), f.onHand(t, "P"))
}

func TestFulfill_PartialKeepsRequestOpen(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 10}, model.Product{ID: "Q", Quantity: 10})
	ctx := context.Background()
	req := f.approvedRequest(t, "", line{"P", 4}, line{"Q", 2})

	res, err := f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 4})
	require.NoError(t, err)
	assert.False(t, res.RequestClosed)

	res, err = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[1].ID, Quantity: 1})
	require.NoError(t, err)
	assert.False(t, res.RequestClosed)
	assert.Equal(t, model.RequestApproved, f.request(t, req.ID).Status)

	res, err = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[1].ID, Quantity: 1})
	require.NoError(t, err)
	assert.True(t, res.RequestClosed)

	got := f.request(t, req.ID)
	assert.Equal(t, model.RequestClosed, got.Status)
	assertTriad(t, got.Items)

	// A closed request accepts no further withdrawals.
	_, err = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 1})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestFulfill_PropagatesToOrder(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 10}, model.Product{ID: "Q", Quantity: 10})
	ctx := context.Background()

	o := f.order(t, line{"P", 5}, line{"Q", 3})
	req := f.approvedRequest(t, o.ID, line{"P", 5}, line{"Q", 3})

	res, err := f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 5})
	require.NoError(t, err)
	require.Len(t, res.OrderItems, 1)
	assert.Equal(t, "P", res.OrderItems[0].ProductID)
	assert.Zero(t, res.Unmatched)

	items, err := f.orders.GetItems(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), items[0].FulfilledQty)
	assert.Zero(t, items[0].RemainingQty)
	assert.Equal(t, int64(3), items[1].RemainingQty, "other products are untouched")

	// Order stays Confirmed: fulfillment never closes orders.
	got, err := f.orders.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OrderConfirmed, got.Status)

	_, err = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[1].ID, Quantity: 3})
	require.NoError(t, err)

	ready, err := f.orders.ListReadyToClose(ctx)
	require.NoError(t, err)
	require.Len(t, ready, 1)

	closed, err := f.orders.Close(ctx, o.ID, "sales-1")
	require.NoError(t, err)
	assert.Equal(t, model.OrderClosed, closed.Status)
}

func TestFulfill_PropagationSpreadsAcrossLinesOfSameProduct(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 20})
	ctx := context.Background()

	o := f.order(t, line{"P", 2}, line{"P", 3})
	req := f.approvedRequest(t, o.ID, line{"P", 7})

	res, err := f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 4})
	require.NoError(t, err)
	require.Len(t, res.OrderItems, 2)
	assert.Zero(t, res.Unmatched)

	items, err := f.orders.GetItems(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), items[0].FulfilledQty, "first line fills first")
	assert.Equal(t, int64(2), items[1].FulfilledQty)
	assert.Equal(t, int64(1), items[1].RemainingQty)

	// Order lines can absorb only one more unit; the rest is unmatched.
	res, err = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Unmatched)
	assert.True(t, res.RequestClosed)

	items, err = f.orders.GetItems(ctx, o.ID)
	require.NoError(t, err)
	for _, it := range items {
		assert.Zero(t, it.RemainingQty)
		assert.Equal(t, it.Quantity, it.FulfilledQty+it.RemainingQty)
	}
	assert.Equal(t, int64(13), f.onHand(t, "P"))
}

func TestFulfill_NoMatchingOrderLineIsNoop(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 10}, model.Product{ID: "Q", Quantity: 10})
	ctx := context.Background()

	o := f.order(t, line{"Q", 1})
	req := f.approvedRequest(t, o.ID, line{"P", 2})

	res, err := f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 2})
	require.NoError(t, err)
	assert.Empty(t, res.OrderItems)
	assert.Equal(t, int64(2), res.Unmatched)
	assert.Equal(t, int64(8), f.onHand(t, "P"))
}

func TestCloseOrder_BlockedByPendingRequest(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 10})
	ctx := context.Background()

	o := f.order(t, line{"P", 2})
	approved := f.approvedRequest(t, o.ID, line{"P", 2})
	_, err := f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: approved.Items[0].ID, Quantity: 2})
	require.NoError(t, err)

	_, err = f.requests.CreateRequest(ctx, &reqDto.CreateRequestInput{
		OrderID: o.ID,
		Items:   []reqDto.CreateRequestItemInput{{ProductID: "P", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.orders.Close(ctx, o.ID, "sales-1")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	ready, err := f.orders.ListReadyToClose(ctx)
	require.NoError(t, err)
	assert.Empty(t, ready)
}

func TestFulfill_ConcurrentSameProduct(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 10})
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
	assert.Equal(t, 1, f.ledgerLen(t, "P"))
}

func TestFulfill_ConcurrentSameItem(t *testing.T) {
	f := setup(t, model.Product{ID: "P", Quantity: 100})
	ctx := context.Background()
	req := f.approvedRequest(t, "", line{"P", 10})

	const workers = 6
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.uc.Fulfill(ctx, &dto.FulfillInput{RequestItemID: req.Items[0].ID, Quantity: 3})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 3, succeeded)

	got := f.request(t, req.ID)
	assert.Equal(t, int64(9), got.Items[0].FulfilledQty)
	assert.Equal(t, int64(1), got.Items[0].RemainingQty)
	assert.Equal(t, int64(91), f.onHand(t, "P"))
}
