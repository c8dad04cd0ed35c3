package gateway

import (
	"context"
	"errors"
)

var ErrUnknownOrder = errors.New("unknown order")

// ExecutionPort 交易所执行端口。所有调用都可能失败或变慢，
// 调用方必须自带超时（context）并把错误上报风控。
type ExecutionPort interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (Order, error)
	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelAllOpenOrders(ctx context.Context, symbol string) error
	GetOrder(ctx context.Context, symbol, orderID string) (Order, error)
	GetAccountInfo(ctx context.Context) (AccountInfo, error)
}
