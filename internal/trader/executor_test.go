package trader

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"ma-crossover-bot-go/internal/binance"
	"ma-crossover-bot-go/internal/config"
)

func testTradingConfig() *config.Trading {
	return &config.Trading{
		Symbol:            "PEPEUSDT",
		QuoteAsset:        "USDT",
		RiskPercentage:    2,
		StopLossPct:       2,
		TakeProfitPct:     3,
		SafetyMargin:      "0.01",
		QuoteBalanceFloor: "0.01",
	}
}

func newTestExecutor(t *testing.T, client binance.RestClientInterface) *OrderExecutor {
	t.Helper()
	constraints := NewConstraints(client, zap.NewNop())
	executor, err := NewOrderExecutor(client, constraints, testTradingConfig(), zap.NewNop())
	require.NoError(t, err)
	return executor
}

func TestExecuteBuy(t *testing.T) {
	t.Run("Happy path submits floored quantity", func(t *testing.T) {
		var gotSide, gotQty string
		client := &mockRestClient{
			getExchangeInfoFn: func() (*binance.ExchangeInfoResponse, error) {
				return pepeExchangeInfo(), nil
			},
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				assert.Equal(t, "USDT", asset)
				return &binance.Balance{Asset: asset, Free: "1000.00000000", Locked: "0"}, nil
			},
			getSymbolTickerFn: func(symbol string) (string, error) {
				return "0.00001000", nil
			},
			createOrderFn: func(symbol, side, quantity string) (*binance.CreateOrderResponse, error) {
				gotSide, gotQty = side, quantity
				return &binance.CreateOrderResponse{
					Symbol:           symbol,
					OrderID:          42,
					Status:           "FILLED",
					ExecutedQuantity: quantity,
				}, nil
			},
		}
		executor := newTestExecutor(t, client)

		require.NoError(t, executor.ExecuteBuy())
		assert.Equal(t, binance.OrderSideBuy, gotSide)
		// 2% of (1000 - 0.01) at 0.00001 = 1999980, already on the 1-step grid.
		assert.Equal(t, "1999980", gotQty)
		assert.Equal(t, 1, client.createOrderCalls)
		assert.Equal(t, stateConfirmed, executor.state)
	})

	t.Run("Cannot afford minimum order", func(t *testing.T) {
		client := &mockRestClient{
			getExchangeInfoFn: func() (*binance.ExchangeInfoResponse, error) {
				return pepeExchangeInfo(), nil
			},
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				return &binance.Balance{Asset: asset, Free: "0.000001", Locked: "0"}, nil
			},
			getSymbolTickerFn: func(symbol string) (string, error) {
				return "0.00001000", nil
			},
		}
		executor := newTestExecutor(t, client)

		err := executor.ExecuteBuy()
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, 0, client.createOrderCalls)
		assert.Equal(t, stateRejected, executor.state)
	})

	t.Run("Boundary balance fails after safety margin", func(t *testing.T) {
		// Free balance exactly covers price x minQty; the margin and the
		// 2% risk allocation leave the sized quantity below minQty, so the
		// order is rejected, not shrunk into a micro-order.
		client := &mockRestClient{
			getExchangeInfoFn: func() (*binance.ExchangeInfoResponse, error) {
				return &binance.ExchangeInfoResponse{
					Symbols: []binance.SymbolInfo{
						{
							Symbol: "PEPEUSDT",
							Filters: []binance.Filter{
								{FilterType: "LOT_SIZE", MinQty: "100000", StepSize: "1"},
								{FilterType: "NOTIONAL", MinNotional: "1"},
							},
						},
					},
				}, nil
			},
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				return &binance.Balance{Asset: asset, Free: "1.00", Locked: "0"}, nil // 0.00001 x 100000 = 1.00
			},
			getSymbolTickerFn: func(symbol string) (string, error) {
				return "0.00001000", nil
			},
		}
		executor := newTestExecutor(t, client)

		err := executor.ExecuteBuy()
		assert.ErrorIs(t, err, ErrBelowMinimumOrderSize)
		assert.Equal(t, 0, client.createOrderCalls)
	})

	t.Run("Below minimum notional", func(t *testing.T) {
		client := &mockRestClient{
			getExchangeInfoFn: func() (*binance.ExchangeInfoResponse, error) {
				return &binance.ExchangeInfoResponse{
					Symbols: []binance.SymbolInfo{
						{
							Symbol: "PEPEUSDT",
							Filters: []binance.Filter{
								{FilterType: "LOT_SIZE", MinQty: "1", StepSize: "1"},
								{FilterType: "NOTIONAL", MinNotional: "100"},
							},
						},
					},
				}, nil
			},
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				return &binance.Balance{Asset: asset, Free: "100", Locked: "0"}, nil
			},
			getSymbolTickerFn: func(symbol string) (string, error) {
				return "0.00001000", nil
			},
		}
		executor := newTestExecutor(t, client)

		// 2% of ~100 = 2 USDT worth, far below the 100 USDT notional floor.
		err := executor.ExecuteBuy()
		assert.ErrorIs(t, err, ErrBelowMinimumNotional)
		assert.Equal(t, 0, client.createOrderCalls)
	})

	t.Run("Balance fetch failure is exchange unavailable", func(t *testing.T) {
		client := &mockRestClient{
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				return nil, fmt.Errorf("read: connection reset by peer")
			},
		}
		executor := newTestExecutor(t, client)

		err := executor.ExecuteBuy()
		assert.ErrorIs(t, err, ErrExchangeUnavailable)
		assert.Equal(t, stateRejected, executor.state)
	})

	t.Run("Exchange rejection is never confirmed", func(t *testing.T) {
		client := &mockRestClient{
			getExchangeInfoFn: func() (*binance.ExchangeInfoResponse, error) {
				return pepeExchangeInfo(), nil
			},
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				return &binance.Balance{Asset: asset, Free: "1000", Locked: "0"}, nil
			},
			getSymbolTickerFn: func(symbol string) (string, error) {
				return "0.00001000", nil
			},
			createOrderFn: func(symbol, side, quantity string) (*binance.CreateOrderResponse, error) {
				return nil, fmt.Errorf("request failed: %w", &binance.APIError{Code: -2010, Msg: "Account has insufficient balance"})
			},
		}
		executor := newTestExecutor(t, client)

		err := executor.ExecuteBuy()
		assert.ErrorIs(t, err, ErrOrderRejected)
		assert.Equal(t, stateRejected, executor.state)
		// One attempt only; the next scheduled cycle is the retry.
		assert.Equal(t, 1, client.createOrderCalls)
	})

	t.Run("Dry run skips the order endpoint", func(t *testing.T) {
		client := &mockRestClient{
			getExchangeInfoFn: func() (*binance.ExchangeInfoResponse, error) {
				return pepeExchangeInfo(), nil
			},
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				return &binance.Balance{Asset: asset, Free: "1000", Locked: "0"}, nil
			},
			getSymbolTickerFn: func(symbol string) (string, error) {
				return "0.00001000", nil
			},
		}
		constraints := NewConstraints(client, zap.NewNop())
		cfg := testTradingConfig()
		cfg.DryRun = true
		executor, err := NewOrderExecutor(client, constraints, cfg, zap.NewNop())
		require.NoError(t, err)

		require.NoError(t, executor.ExecuteBuy())
		assert.Equal(t, 0, client.createOrderCalls)
		assert.Equal(t, stateConfirmed, executor.state)
	})
}

func TestExecuteSell(t *testing.T) {
	t.Run("Sells full floored balance", func(t *testing.T) {
		var gotSide, gotQty string
		client := &mockRestClient{
			getExchangeInfoFn: func() (*binance.ExchangeInfoResponse, error) {
				return pepeExchangeInfo(), nil
			},
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				assert.Equal(t, "PEPE", asset)
				return &binance.Balance{Asset: asset, Free: "123456.789", Locked: "0"}, nil
			},
			getSymbolTickerFn: func(symbol string) (string, error) {
				return "0.00001000", nil
			},
			createOrderFn: func(symbol, side, quantity string) (*binance.CreateOrderResponse, error) {
				gotSide, gotQty = side, quantity
				return &binance.CreateOrderResponse{Symbol: symbol, OrderID: 7, Status: "FILLED"}, nil
			},
		}
		executor := newTestExecutor(t, client)

		require.NoError(t, executor.ExecuteSell())
		assert.Equal(t, binance.OrderSideSell, gotSide)
		assert.Equal(t, "123456", gotQty)
	})

	t.Run("Held balance below min quantity", func(t *testing.T) {
		client := &mockRestClient{
			getExchangeInfoFn: func() (*binance.ExchangeInfoResponse, error) {
				return pepeExchangeInfo(), nil
			},
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				return &binance.Balance{Asset: asset, Free: "0.5", Locked: "0"}, nil
			},
		}
		executor := newTestExecutor(t, client)

		err := executor.ExecuteSell()
		assert.ErrorIs(t, err, ErrBelowMinimumOrderSize)
		assert.Equal(t, 0, client.createOrderCalls)
	})

	t.Run("Sell below minimum notional", func(t *testing.T) {
		client := &mockRestClient{
			getExchangeInfoFn: func() (*binance.ExchangeInfoResponse, error) {
				return pepeExchangeInfo(), nil
			},
			getAssetBalanceFn: func(asset string) (*binance.Balance, error) {
				return &binance.Balance{Asset: asset, Free: "100", Locked: "0"}, nil
			},
			getSymbolTickerFn: func(symbol string) (string, error) {
				return "0.00001000", nil // 100 x 0.00001 = 0.001, below min notional 1
			},
		}
		executor := newTestExecutor(t, client)

		err := executor.ExecuteSell()
		assert.ErrorIs(t, err, ErrBelowMinimumNotional)
		assert.Equal(t, 0, client.createOrderCalls)
	})
}
