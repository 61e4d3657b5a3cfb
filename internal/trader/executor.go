package trader

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"ma-crossover-bot-go/internal/binance"
	"ma-crossover-bot-go/internal/config"
)

// executionState tracks the per-cycle progression of an order attempt.
type executionState int

const (
	stateIdle executionState = iota
	stateValidating
	stateSubmitting
	stateConfirmed
	stateRejected
)

func (s executionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateValidating:
		return "validating"
	case stateSubmitting:
		return "submitting"
	case stateConfirmed:
		return "confirmed"
	case stateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// OrderExecutor validates a trade decision against balance and symbol
// constraints and places the market order. One order attempt per cycle;
// failures are never retried within the cycle.
type OrderExecutor struct {
	client      binance.RestClientInterface
	constraints *Constraints
	logger      *zap.Logger

	symbol       string
	baseAsset    string
	quoteAsset   string
	riskPct      float64
	stopLossPct  decimal.Decimal
	takeProfPct  decimal.Decimal
	safetyMargin decimal.Decimal
	dryRun       bool

	state executionState
}

// NewOrderExecutor creates an executor for the configured symbol.
func NewOrderExecutor(client binance.RestClientInterface, constraints *Constraints, cfg *config.Trading, logger *zap.Logger) (*OrderExecutor, error) {
	margin, err := decimal.NewFromString(cfg.SafetyMargin)
	if err != nil {
		return nil, fmt.Errorf("invalid safety margin %q: %w", cfg.SafetyMargin, err)
	}

	return &OrderExecutor{
		client:       client,
		constraints:  constraints,
		logger:       logger,
		symbol:       cfg.Symbol,
		baseAsset:    strings.TrimSuffix(cfg.Symbol, cfg.QuoteAsset),
		quoteAsset:   cfg.QuoteAsset,
		riskPct:      cfg.RiskPercentage,
		stopLossPct:  decimal.NewFromFloat(cfg.StopLossPct),
		takeProfPct:  decimal.NewFromFloat(cfg.TakeProfitPct),
		safetyMargin: margin,
		dryRun:       cfg.DryRun,
		state:        stateIdle,
	}, nil
}

func (e *OrderExecutor) setState(s executionState) {
	e.logger.Debug("Order execution state change",
		zap.String("from", e.state.String()),
		zap.String("to", s.String()),
	)
	e.state = s
}

func (e *OrderExecutor) reject(err error) error {
	e.setState(stateRejected)
	return err
}

// ExecuteBuy runs the full buy path: free quote balance, affordability
// pre-check, safety margin, sizing, notional check, submission. The safety
// margin absorbs price movement between the price fetch and the order
// hitting the exchange.
func (e *OrderExecutor) ExecuteBuy() error {
	e.setState(stateValidating)

	balance, err := e.client.GetAssetBalance(e.quoteAsset)
	if err != nil {
		return e.reject(fmt.Errorf("%w: %v", ErrExchangeUnavailable, err))
	}
	free, err := decimal.NewFromString(balance.Free)
	if err != nil {
		return e.reject(fmt.Errorf("%w: bad free balance %q", ErrExchangeUnavailable, balance.Free))
	}
	e.logger.Info("Quote balance",
		zap.String("asset", e.quoteAsset),
		zap.String("free", balance.Free),
		zap.String("locked", balance.Locked),
	)

	rules, err := e.constraints.Rules(e.symbol)
	if err != nil {
		return e.reject(err)
	}

	price, err := e.fetchPrice()
	if err != nil {
		return e.reject(err)
	}

	if !CanAffordMinimumOrder(free, price, rules) {
		return e.reject(fmt.Errorf("%w: free %s %s cannot cover min qty %s at price %s",
			ErrInsufficientBalance, free, e.quoteAsset, rules.MinQty, price))
	}

	free = free.Sub(e.safetyMargin)
	sized := SizeForBuy(free, price, e.riskPct, rules)
	if !sized.Valid {
		return e.reject(fmt.Errorf("buy sizing rejected: %w", sized.Reason))
	}
	if !MeetsMinNotional(sized.Quantity, price, rules) {
		return e.reject(fmt.Errorf("%w: %s x %s < %s",
			ErrBelowMinimumNotional, sized.Quantity, price, rules.MinNotional))
	}

	e.logger.Info("Sized buy order",
		zap.String("symbol", e.symbol),
		zap.String("quantity", sized.Quantity.String()),
		zap.String("price", price.String()),
	)

	if err := e.submit(binance.OrderSideBuy, sized.Quantity); err != nil {
		return err
	}

	// Informational only. No resting stop or take-profit order is placed;
	// the levels are recomputed from the post-fill ticker and logged.
	if fillPrice, err := e.fetchPrice(); err == nil {
		hundred := decimal.NewFromInt(100)
		stop := fillPrice.Mul(decimal.NewFromInt(1).Sub(e.stopLossPct.Div(hundred)))
		take := fillPrice.Mul(decimal.NewFromInt(1).Add(e.takeProfPct.Div(hundred)))
		e.logger.Info("Protective levels (not placed)",
			zap.String("stop_loss", stop.String()),
			zap.String("take_profit", take.String()),
		)
	} else {
		e.logger.Warn("Could not fetch fill price for protective levels", zap.Error(err))
	}

	return nil
}

// ExecuteSell sells the entire free base balance, floored to the step
// size. Sub-minimum results are rejected so the loop can enter its long
// cooldown instead of re-attempting every cycle.
func (e *OrderExecutor) ExecuteSell() error {
	e.setState(stateValidating)

	balance, err := e.client.GetAssetBalance(e.baseAsset)
	if err != nil {
		return e.reject(fmt.Errorf("%w: %v", ErrExchangeUnavailable, err))
	}
	held, err := decimal.NewFromString(balance.Free)
	if err != nil {
		return e.reject(fmt.Errorf("%w: bad free balance %q", ErrExchangeUnavailable, balance.Free))
	}
	e.logger.Info("Base balance",
		zap.String("asset", e.baseAsset),
		zap.String("free", balance.Free),
		zap.String("locked", balance.Locked),
	)

	rules, err := e.constraints.Rules(e.symbol)
	if err != nil {
		return e.reject(err)
	}

	sized := SizeForSell(held, rules)
	if !sized.Valid {
		return e.reject(fmt.Errorf("sell sizing rejected: %w", sized.Reason))
	}

	price, err := e.fetchPrice()
	if err != nil {
		return e.reject(err)
	}
	if !MeetsMinNotional(sized.Quantity, price, rules) {
		return e.reject(fmt.Errorf("%w: %s x %s < %s",
			ErrBelowMinimumNotional, sized.Quantity, price, rules.MinNotional))
	}

	e.logger.Info("Sized sell order",
		zap.String("symbol", e.symbol),
		zap.String("quantity", sized.Quantity.String()),
		zap.String("price", price.String()),
	)

	return e.submit(binance.OrderSideSell, sized.Quantity)
}

func (e *OrderExecutor) fetchPrice() (decimal.Decimal, error) {
	priceStr, err := e.client.GetSymbolTicker(e.symbol)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrExchangeUnavailable, err)
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad ticker price %q", ErrExchangeUnavailable, priceStr)
	}
	return price, nil
}

func (e *OrderExecutor) submit(side string, quantity decimal.Decimal) error {
	e.setState(stateSubmitting)

	l := e.logger.With(
		zap.String("symbol", e.symbol),
		zap.String("side", side),
		zap.String("quantity", quantity.String()),
	)

	if e.dryRun {
		l.Warn("Dry run enabled. No real order will be placed.")
		e.setState(stateConfirmed)
		return nil
	}

	order, err := e.client.CreateOrder(e.symbol, side, quantity.String())
	if err != nil {
		e.setState(stateRejected)
		var apiErr *binance.APIError
		if errors.As(err, &apiErr) {
			l.Error("Order rejected by exchange",
				zap.Int("code", apiErr.Code),
				zap.String("message", apiErr.Msg),
			)
			return fmt.Errorf("%w: %v", ErrOrderRejected, apiErr)
		}
		return fmt.Errorf("%w: %v", ErrExchangeUnavailable, err)
	}

	e.setState(stateConfirmed)
	l.Info("Order confirmed",
		zap.Int64("order_id", order.OrderID),
		zap.String("status", order.Status),
		zap.String("executed_qty", order.ExecutedQuantity),
		zap.String("quote_qty", order.CummulativeQuoteQty),
	)
	return nil
}
