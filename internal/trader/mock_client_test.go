package trader

import (
	"fmt"

	"ma-crossover-bot-go/internal/binance"
)

// mockRestClient implements binance.RestClientInterface with overridable
// function fields, so each test stubs only the calls it cares about.
type mockRestClient struct {
	getServerTimeFn   func() (int64, error)
	getKlinesFn       func(symbol, interval string, limit int) ([]binance.Kline, error)
	getSymbolTickerFn func(symbol string) (string, error)
	getAssetBalanceFn func(asset string) (*binance.Balance, error)
	getExchangeInfoFn func() (*binance.ExchangeInfoResponse, error)
	createOrderFn     func(symbol, side, quantity string) (*binance.CreateOrderResponse, error)

	exchangeInfoCalls int
	createOrderCalls  int
}

var _ binance.RestClientInterface = (*mockRestClient)(nil)

func (m *mockRestClient) GetServerTime() (int64, error) {
	if m.getServerTimeFn != nil {
		return m.getServerTimeFn()
	}
	return 0, nil
}

func (m *mockRestClient) GetKlines(symbol, interval string, limit int) ([]binance.Kline, error) {
	if m.getKlinesFn != nil {
		return m.getKlinesFn(symbol, interval, limit)
	}
	return nil, fmt.Errorf("GetKlines not stubbed")
}

func (m *mockRestClient) GetSymbolTicker(symbol string) (string, error) {
	if m.getSymbolTickerFn != nil {
		return m.getSymbolTickerFn(symbol)
	}
	return "", fmt.Errorf("GetSymbolTicker not stubbed")
}

func (m *mockRestClient) GetAssetBalance(asset string) (*binance.Balance, error) {
	if m.getAssetBalanceFn != nil {
		return m.getAssetBalanceFn(asset)
	}
	return nil, fmt.Errorf("GetAssetBalance not stubbed")
}

func (m *mockRestClient) GetExchangeInfo() (*binance.ExchangeInfoResponse, error) {
	m.exchangeInfoCalls++
	if m.getExchangeInfoFn != nil {
		return m.getExchangeInfoFn()
	}
	return nil, fmt.Errorf("GetExchangeInfo not stubbed")
}

func (m *mockRestClient) CreateOrder(symbol, side, quantity string) (*binance.CreateOrderResponse, error) {
	m.createOrderCalls++
	if m.createOrderFn != nil {
		return m.createOrderFn(symbol, side, quantity)
	}
	return nil, fmt.Errorf("CreateOrder not stubbed")
}

// pepeExchangeInfo is a minimal exchange listing with both filters present.
func pepeExchangeInfo() *binance.ExchangeInfoResponse {
	return &binance.ExchangeInfoResponse{
		Symbols: []binance.SymbolInfo{
			{
				Symbol: "PEPEUSDT",
				Status: "TRADING",
				Filters: []binance.Filter{
					{FilterType: "LOT_SIZE", MinQty: "1", StepSize: "1", MaxQty: "92141578000"},
					{FilterType: "NOTIONAL", MinNotional: "1.00000000"},
				},
			},
		},
	}
}
