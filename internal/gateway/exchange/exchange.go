package exchange

import (
	"context"

	"fxbot/internal/market"
)

// Broker 是核心逻辑依赖的经纪商协作方。所有调用都可能返回 *BrokerError。
type Broker interface {
	Name() string

	// Account 每次返回新的不可变快照。
	Account(ctx context.Context) (AccountSnapshot, error)

	Candles(ctx context.Context, req market.CandleRequest) ([]market.Candle, error)

	CreateOrder(ctx context.Context, req OrderRequest) (OrderConfirmation, error)

	OpenPositions(ctx context.Context) ([]Position, error)

	ClosePosition(ctx context.Context, pos Position) (Confirmation, error)

	OpenTrades(ctx context.Context) ([]Trade, error)

	CloseTrade(ctx context.Context, tradeID string) (Confirmation, error)
}
