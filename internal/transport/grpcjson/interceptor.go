package grpcjson

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-fulfillment-service/internal/apperr"
	"github.com/fekuna/omnipos-fulfillment-service/internal/logger"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor logs every unary call and turns panics into Internal.
// Domain failures are logged at Info since they are expected outcomes.
func LoggingInterceptor(log logger.ZapLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in grpc handler", zap.String("method", info.FullMethod), zap.Any("panic", r))
				err = status.Error(codes.Internal, fmt.Sprint(r))
			}

			fields := []zap.Field{
				zap.String("method", info.FullMethod),
				zap.Duration("duration", time.Since(start)),
			}
			if err == nil {
				log.Debug("grpc call", fields...)
				return
			}
			fields = append(fields, zap.String("code", status.Code(err).String()), zap.Error(err))
			if apperr.KindOf(err) == apperr.Internal {
				log.Error("grpc call failed", fields...)
			} else {
				log.Info("grpc call rejected", fields...)
			}
		}()
		return handler(ctx, req)
	}
}
