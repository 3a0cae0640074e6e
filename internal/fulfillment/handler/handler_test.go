package handler

import (
	"context"
	"testing"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/fulfillment/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type fakeUseCase struct {
	got *dto.FulfillInput
	err error
}

func (f *fakeUseCase) Fulfill(_ context.Context, input *dto.FulfillInput) (*dto.FulfillResult, error) {
	f.got = input
	if f.err != nil {
		return nil, f.err
	}
	return &dto.FulfillResult{
		Item:          model.RequestItem{ID: input.RequestItemID, Quantity: 5, FulfilledQty: input.Quantity, RemainingQty: 5 - input.Quantity},
		RequestClosed: input.Quantity == 5,
	}, nil
}

func TestFulfill_StaffFromMetadata(t *testing.T) {
	uc := &fakeUseCase{}
	h := NewFulfillmentHandler(uc, logger.NewNop())
	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-user-id", "wh-7"))

	res, err := h.Fulfill(ctx, &FulfillRequest{RequestItemID: "ri-1", Quantity: 5})
	require.NoError(t, err)

	assert.Equal(t, "wh-7", uc.got.StaffID)
	assert.True(t, res.RequestClosed)
	assert.Zero(t, res.Item.RemainingQty)
}

func TestFulfill_ErrorCarriesGRPCCode(t *testing.T) {
	uc := &fakeUseCase{err: apperr.NewInsufficientStock("fulfillment.Fulfill", "p-1", 5, 3)}
	h := NewFulfillmentHandler(uc, logger.NewNop())

	_, err := h.Fulfill(context.Background(), &FulfillRequest{RequestItemID: "ri-1", Quantity: 5, StaffID: "wh-1"})
	require.Error(t, err)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
	assert.Equal(t, "wh-1", uc.got.StaffID)
}
