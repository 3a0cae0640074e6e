package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/order/dto"
)

type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(ctx context.Context, o *model.Order) error {
	defer r.s.guard(ctx)()
	if _, ok := r.s.st.orders[o.ID]; ok {
		return fmt.Errorf("memory: order %s already exists", o.ID)
	}
	for _, it := range o.Items {
		if _, ok := r.s.st.products[it.ProductID]; !ok {
			return apperr.NewNotFound("order.Create", "product", it.ProductID)
		}
		if it.FulfilledQty+it.RemainingQty != it.Quantity || it.RemainingQty < 0 {
			return errCheckViolation("order_items.quantity_triad")
		}
	}
	row := *o
	row.Items = nil
	r.s.st.orders[o.ID] = row
	for _, it := range o.Items {
		r.s.st.orderItems[it.ID] = it
	}
	return nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	defer r.s.guard(ctx)()
	o, ok := r.s.st.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (r *OrderRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *OrderRepository) FindAll(ctx context.Context, f *dto.OrderFilters) ([]model.Order, error) {
	defer r.s.guard(ctx)()
	var out []model.Order
	for _, o := range r.s.st.orders {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if f.CustomerID != "" && o.CustomerID != f.CustomerID {
			continue
		}
		out = append(out, o)
	}
	sortOrders(out)
	return out, nil
}

func (r *OrderRepository) FindReadyToClose(ctx context.Context) ([]model.Order, error) {
	defer r.s.guard(ctx)()
	var out []model.Order
	for _, o := range r.s.st.orders {
		if o.Status == model.OrderConfirmed && r.openItems(o.ID) == 0 && r.activeRequests(o.ID) == 0 {
			out = append(out, o)
		}
	}
	sortOrders(out)
	return out, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, o *model.Order) error {
	defer r.s.guard(ctx)()
	cur, ok := r.s.st.orders[o.ID]
	if !ok {
		return errMissingRow("order", o.ID)
	}
	cur.Status = o.Status
	cur.ClosedBy = o.ClosedBy
	cur.ClosedAt = o.ClosedAt
	r.s.st.orders[o.ID] = cur
	return nil
}

func (r *OrderRepository) FindItems(ctx context.Context, orderID string) ([]model.OrderItem, error) {
	defer r.s.guard(ctx)()
	return r.items(orderID, ""), nil
}

func (r *OrderRepository) FindOpenItemsByProductForUpdate(ctx context.Context, orderID, productID string) ([]model.OrderItem, error) {
	defer r.s.guard(ctx)()
	var out []model.OrderItem
	for _, it := range r.items(orderID, productID) {
		if it.RemainingQty > 0 {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *OrderRepository) UpdateItemFulfillment(ctx context.Context, item *model.OrderItem) error {
	defer r.s.guard(ctx)()
	cur, ok := r.s.st.orderItems[item.ID]
	if !ok {
		return errMissingRow("order_item", item.ID)
	}
	if item.FulfilledQty+item.RemainingQty != cur.Quantity || item.RemainingQty < 0 || item.FulfilledQty < cur.FulfilledQty {
		return errCheckViolation("order_items.quantity_triad")
	}
	cur.FulfilledQty = item.FulfilledQty
	cur.RemainingQty = item.RemainingQty
	r.s.st.orderItems[item.ID] = cur
	return nil
}

func (r *OrderRepository) CountOpenItems(ctx context.Context, orderID string) (int, error) {
	defer r.s.guard(ctx)()
	return r.openItems(orderID), nil
}

func (r *OrderRepository) CountActiveRequests(ctx context.Context, orderID string) (int, error) {
	defer r.s.guard(ctx)()
	return r.activeRequests(orderID), nil
}

func (r *OrderRepository) items(orderID, productID string) []model.OrderItem {
	var out []model.OrderItem
	for _, it := range r.s.st.orderItems {
		if it.OrderID != orderID {
			continue
		}
		if productID != "" && it.ProductID != productID {
			continue
		}
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LineNo != out[j].LineNo {
			return out[i].LineNo < out[j].LineNo
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *OrderRepository) openItems(orderID string) int {
	n := 0
	for _, it := range r.s.st.orderItems {
		if it.OrderID == orderID && it.RemainingQty > 0 {
			n++
		}
	}
	return n
}

func (r *OrderRepository) activeRequests(orderID string) int {
	n := 0
	for _, req := range r.s.st.requests {
		if req.OrderID != nil && *req.OrderID == orderID && !req.Status.Terminal() {
			n++
		}
	}
	return n
}
