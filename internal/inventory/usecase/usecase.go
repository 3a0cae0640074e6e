package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/broker"
	"github.com/fekuna/omnipos-fulfillment-service/internal/cache"
	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory"
	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/fekuna/omnipos-fulfillment-service/internal/model"
	"github.com/fekuna/omnipos-fulfillment-service/internal/txn"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type inventoryUseCase struct {
	repo     inventory.Repository
	tm       txn.Manager
	cache    cache.Cache
	cacheTTL time.Duration
	pub      broker.Publisher
	logger   logger.ZapLogger
	group    singleflight.Group

	// cacheMu orders cache fills against invalidations. generations counts
	// invalidations per product so a fill that read before one is dropped.
	cacheMu     sync.Mutex
	generations map[string]uint64
}

// NewInventoryUseCase wires the movement writer. cache and pub may be nil.
func NewInventoryUseCase(
	repo inventory.Repository,
	tm txn.Manager,
	cache cache.Cache,
	cacheTTL time.Duration,
	pub broker.Publisher,
	log logger.ZapLogger,
) inventory.UseCase {
	return &inventoryUseCase{
		repo:        repo,
		tm:          tm,
		cache:       cache,
		cacheTTL:    cacheTTL,
		pub:         pub,
		logger:      log,
		generations: map[string]uint64{},
	}
}

func stockCacheKey(productID string) string {
	return "inventory:stock:" + productID
}

func (uc *inventoryUseCase) ApplyMovement(ctx context.Context, input *dto.MovementInput) (*model.StockTransaction, error) {
	const op = "inventory.ApplyMovement"

	if err := validateMovement(op, input); err != nil {
		return nil, err
	}

	var movement *model.StockTransaction
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		p, err := uc.repo.GetProductForUpdate(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NewNotFound(op, "product", input.ProductID)
		}

		quantityBefore := p.Quantity
		if quantityBefore+input.Quantity < 0 {
			return apperr.NewInsufficientStock(op, p.ID, -input.Quantity, quantityBefore)
		}

		now := time.Now().UTC()
		p.Quantity = quantityBefore + input.Quantity
		p.UpdatedAt = now

		movement = &model.StockTransaction{
			ID:             uuid.New().String(),
			Type:           input.Type,
			ProductID:      p.ID,
			Quantity:       input.Type.LedgerQuantity(input.Quantity),
			QuantityBefore: quantityBefore,
			QuantityAfter:  p.Quantity,
			StaffID:        input.StaffID,
			Reference:      input.Reference,
			CreatedAt:      now,
		}

		if err := uc.repo.AdjustStockWithMovement(ctx, p, movement); err != nil {
			return err
		}

		txn.AfterCommit(ctx, func(ctx context.Context) { uc.invalidate(ctx, p.ID) })
		broker.PublishAfterCommit(ctx, uc.pub, uc.logger, broker.NewEvent(model.EventStockMoved, p.ID, model.StockMovedPayload{
			TransactionID: movement.ID,
			ProductID:     p.ID,
			Type:          movement.Type,
			Quantity:      movement.Quantity,
			QuantityAfter: movement.QuantityAfter,
			StaffID:       movement.StaffID,
			Reference:     movement.Reference,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info("stock movement applied",
		zap.String("product_id", movement.ProductID),
		zap.String("type", string(movement.Type)),
		zap.Int64("quantity", movement.Quantity),
		zap.Int64("quantity_after", movement.QuantityAfter),
		zap.String("staff_id", movement.StaffID),
	)
	return movement, nil
}

func validateMovement(op string, input *dto.MovementInput) error {
	switch input.Type {
	case model.MovementIn:
		if input.Quantity <= 0 {
			return apperr.NewInvalidArgument(op, "product", input.ProductID, input.Quantity, "stock-in quantity must be positive")
		}
	case model.MovementOut:
		if input.Quantity >= 0 {
			return apperr.NewInvalidArgument(op, "product", input.ProductID, input.Quantity, "stock-out quantity must be negative")
		}
	case model.MovementAdjust:
		if input.Quantity == 0 {
			return apperr.NewInvalidArgument(op, "product", input.ProductID, input.Quantity, "adjustment must be non-zero")
		}
	default:
		return &apperr.Error{Kind: apperr.InvalidArgument, Op: op, Msg: fmt.Sprintf("unknown movement type %q", input.Type)}
	}
	return nil
}

func (uc *inventoryUseCase) AddStockIn(ctx context.Context, input *dto.StockInInput) (*model.StockTransaction, error) {
	if input.Quantity <= 0 {
		return nil, apperr.NewInvalidArgument("inventory.AddStockIn", "product", input.ProductID, input.Quantity, "quantity must be positive")
	}

	return uc.ApplyMovement(ctx, &dto.MovementInput{
		ProductID: input.ProductID,
		Quantity:  input.Quantity,
		Type:      model.MovementIn,
		StaffID:   input.StaffID,
		Reference: fmt.Sprintf("Stock-In from supplier %s. Note: %s", input.SupplierID, input.Note),
	})
}

// GetProductStock reads through the cache. Concurrent misses for the same
// product share one repository call.
func (uc *inventoryUseCase) GetProductStock(ctx context.Context, productID string) (*model.Product, error) {
	key := stockCacheKey(productID)

	if uc.cache != nil {
		var cached model.Product
		hit, err := uc.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			uc.logger.Warn("stock cache read failed", zap.String("product_id", productID), zap.Error(err))
		} else if hit {
			return &cached, nil
		}
	}

	// The shared read outlives any single caller's cancellation.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := uc.group.Do(key, func() (interface{}, error) {
		gen := uc.generation(productID)
		p, err := uc.repo.GetProduct(flightCtx, productID)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, apperr.NewNotFound("inventory.GetProductStock", "product", productID)
		}
		uc.fill(flightCtx, productID, gen, p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	p := *v.(*model.Product)
	return &p, nil
}

func (uc *inventoryUseCase) generation(productID string) uint64 {
	uc.cacheMu.Lock()
	defer uc.cacheMu.Unlock()
	return uc.generations[productID]
}

// fill writes p to the cache unless the product was invalidated after gen
// was taken.
func (uc *inventoryUseCase) fill(ctx context.Context, productID string, gen uint64, p *model.Product) {
	if uc.cache == nil {
		return
	}
	uc.cacheMu.Lock()
	defer uc.cacheMu.Unlock()
	if uc.generations[productID] != gen {
		uc.logger.Debug("stock cache fill skipped, product changed during read", zap.String("product_id", productID))
		return
	}
	if err := uc.cache.SetJSON(ctx, stockCacheKey(productID), p, uc.cacheTTL); err != nil {
		uc.logger.Warn("stock cache write failed", zap.String("product_id", productID), zap.Error(err))
	}
}

func (uc *inventoryUseCase) invalidate(ctx context.Context, productID string) {
	if uc.cache == nil {
		return
	}
	uc.cacheMu.Lock()
	defer uc.cacheMu.Unlock()
	uc.generations[productID]++
	if err := uc.cache.Delete(ctx, stockCacheKey(productID)); err != nil {
		uc.logger.Warn("stock cache invalidation failed", zap.String("product_id", productID), zap.Error(err))
	}
}

func (uc *inventoryUseCase) ListTransactions(ctx context.Context, filters *dto.TransactionFilters) ([]model.StockTransaction, int, error) {
	return uc.repo.ListTransactions(ctx, filters)
}

func (uc *inventoryUseCase) Reconcile(ctx context.Context, productID string) (*model.Reconciliation, error) {
	var rec *model.Reconciliation
	err := uc.tm.WithinTx(ctx, func(ctx context.Context) error {
		p, err := uc.repo.GetProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return apperr.NewNotFound("inventory.Reconcile", "product", productID)
		}
		total, entries, err := uc.repo.SumLedger(ctx, productID)
		if err != nil {
			return err
		}
		rec = &model.Reconciliation{ProductID: productID, OnHand: p.Quantity, LedgerTotal: total, Entries: entries}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !rec.Balanced() {
		uc.logger.Error("ledger out of balance",
			zap.String("product_id", productID),
			zap.Int64("on_hand", rec.OnHand),
			zap.Int64("ledger_total", rec.LedgerTotal),
		)
	}
	return rec, nil
}
