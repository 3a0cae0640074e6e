package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/request/dto"
)

type RequestRepository struct {
	s *Store
}

func (r *RequestRepository) Create(ctx context.Context, req *model.Request) error {
	defer r.s.guard(ctx)()
	if _, ok := r.s.st.requests[req.ID]; ok {
		return fmt.Errorf("memory: request %s already exists", req.ID)
	}
	if req.OrderID != nil {
		if _, ok := r.s.st.orders[*req.OrderID]; !ok {
			return errMissingRow("order", *req.OrderID)
		}
	}
	for _, it := range req.Items {
		if _, ok := r.s.st.products[it.ProductID]; !ok {
			return apperr.NewNotFound("request.Create", "product", it.ProductID)
		}
		if it.FulfilledQty+it.RemainingQty != it.Quantity || it.RemainingQty < 0 {
			return errCheckViolation("request_items.quantity_triad")
		}
	}
	row := *req
	row.Items = nil
	r.s.st.requests[req.ID] = row
	for _, it := range req.Items {
		r.s.st.requestItems[it.ID] = it
	}
	return nil
}

func (r *RequestRepository) FindByID(ctx context.Context, id string) (*model.Request, error) {
	defer r.s.guard(ctx)()
	req, ok := r.s.st.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

func (r *RequestRepository) FindByIDForUpdate(ctx context.Context, id string) (*model.Request, error) {
	return r.FindByID(ctx, id)
}

func (r *RequestRepository) FindAll(ctx context.Context, f *dto.RequestFilters) ([]model.Request, error) {
	defer r.s.guard(ctx)()
	var out []model.Request
	for _, req := range r.s.st.requests {
		if f.Status != "" && req.Status != f.Status {
			continue
		}
		if f.OrderID != "" && (req.OrderID == nil || *req.OrderID != f.OrderID) {
			continue
		}
		out = append(out, req)
	}
	sortRequests(out)
	return out, nil
}

func (r *RequestRepository) FindReadyToClose(ctx context.Context) ([]model.Request, error) {
	defer r.s.guard(ctx)()
	var out []model.Request
	for _, req := range r.s.st.requests {
		if req.Status == model.RequestApproved && r.openItems(req.ID) == 0 {
			out = append(out, req)
		}
	}
	sortRequests(out)
	return out, nil
}

func (r *RequestRepository) UpdateStatus(ctx context.Context, req *model.Request) error {
	defer r.s.guard(ctx)()
	cur, ok := r.s.st.requests[req.ID]
	if !ok {
		return errMissingRow("request", req.ID)
	}
	cur.Status = req.Status
	cur.ApprovedBy = req.ApprovedBy
	cur.ApprovedAt = req.ApprovedAt
	cur.ClosedBy = req.ClosedBy
	cur.ClosedAt = req.ClosedAt
	r.s.st.requests[req.ID] = cur
	return nil
}

func (r *RequestRepository) FindItems(ctx context.Context, requestID string) ([]model.RequestItem, error) {
	defer r.s.guard(ctx)()
	var out []model.RequestItem
	for _, it := range r.s.st.requestItems {
		if it.RequestID == requestID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LineNo != out[j].LineNo {
			return out[i].LineNo < out[j].LineNo
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *RequestRepository) FindItemByID(ctx context.Context, itemID string) (*model.RequestItem, error) {
	defer r.s.guard(ctx)()
	it, ok := r.s.st.requestItems[itemID]
	if !ok {
		return nil, nil
	}
	return &it, nil
}

func (r *RequestRepository) FindItemByIDForUpdate(ctx context.Context, itemID string) (*model.RequestItem, error) {
	return r.FindItemByID(ctx, itemID)
}

func (r *RequestRepository) UpdateItemFulfillment(ctx context.Context, item *model.RequestItem) error {
	defer r.s.guard(ctx)()
	cur, ok := r.s.st.requestItems[item.ID]
	if !ok {
		return errMissingRow("request_item", item.ID)
	}
	if item.FulfilledQty+item.RemainingQty != cur.Quantity || item.RemainingQty < 0 || item.FulfilledQty < cur.FulfilledQty {
		return errCheckViolation("request_items.quantity_triad")
	}
	cur.FulfilledQty = item.FulfilledQty
	cur.RemainingQty = item.RemainingQty
	r.s.st.requestItems[item.ID] = cur
	return nil
}

func (r *RequestRepository) CountOpenItems(ctx context.Context, requestID string) (int, error) {
	defer r.s.guard(ctx)()
	return r.openItems(requestID), nil
}

func (r *RequestRepository) openItems(requestID string) int {
	n := 0
	for _, it := range r.s.st.requestItems {
		if it.RequestID == requestID && it.RemainingQty > 0 {
			n++
		}
	}
	return n
}
