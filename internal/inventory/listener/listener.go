package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory"
	"github.com/fekuna/omnipos-fulfillment-service/internal/inventory/dto"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const EventStockReceived = "StockReceived"

// MessageReader is satisfied by broker.KafkaConsumer.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type ReceiptListener struct {
	reader  MessageReader
	uc      inventory.UseCase
	logger  logger.ZapLogger
	backoff time.Duration
}

func NewReceiptListener(reader MessageReader, uc inventory.UseCase, logger logger.ZapLogger) *ReceiptListener {
	return &ReceiptListener{
		reader:  reader,
		uc:      uc,
		logger:  logger,
		backoff: time.Second,
	}
}

func (l *ReceiptListener) Start(ctx context.Context) {
	l.logger.Info("Starting stock receipt listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping stock receipt listener")
			return
		default:
			msg, err := l.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(l.backoff):
				}
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

type StockReceivedEvent struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Payload   ReceiptPayload `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

type ReceiptPayload struct {
	ProductID  string `json:"product_id"`
	Quantity   int64  `json:"quantity"`
	StaffID    string `json:"staff_id"`
	SupplierID string `json:"supplier_id"`
	Note       string `json:"note"`
}

func (l *ReceiptListener) processMessage(ctx context.Context, value []byte) {
	var event StockReceivedEvent
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != EventStockReceived {
		return
	}

	p := event.Payload
	_, err := l.uc.AddStockIn(ctx, &dto.StockInInput{
		ProductID:  p.ProductID,
		Quantity:   p.Quantity,
		StaffID:    p.StaffID,
		SupplierID: p.SupplierID,
		Note:       p.Note,
	})
	if err != nil {
		// Not retried: a redelivered receipt would double count.
		l.logger.Error("Failed to record stock receipt",
			zap.String("event_id", event.EventID),
			zap.String("product_id", p.ProductID),
			zap.Int64("quantity", p.Quantity),
			zap.Error(err),
		)
	}
}
