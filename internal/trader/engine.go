package trader

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"ma-crossover-bot-go/internal/binance"
	"ma-crossover-bot-go/internal/config"
)

// Engine is the trading loop: one cycle fetches the price series, derives
// the crossover decision, gates on the quote balance floor and drives the
// executor. Cycles never overlap and any cycle failure is logged and
// swallowed so the process keeps running.
type Engine struct {
	logger      *zap.Logger
	cfg         *config.Config
	client      binance.RestClientInterface
	constraints *Constraints
	executor    *OrderExecutor

	balanceFloor decimal.Decimal
	pollInterval time.Duration
	backoff      time.Duration
}

// NewEngine creates a new trading engine.
func NewEngine(logger *zap.Logger, cfg *config.Config, client binance.RestClientInterface) (*Engine, error) {
	floor, err := decimal.NewFromString(cfg.Trading.QuoteBalanceFloor)
	if err != nil {
		return nil, fmt.Errorf("invalid quote balance floor %q: %w", cfg.Trading.QuoteBalanceFloor, err)
	}

	constraints := NewConstraints(client, logger)
	executor, err := NewOrderExecutor(client, constraints, &cfg.Trading, logger)
	if err != nil {
		return nil, err
	}

	return &Engine{
		logger:       logger,
		cfg:          cfg,
		client:       client,
		constraints:  constraints,
		executor:     executor,
		balanceFloor: floor,
		pollInterval: time.Duration(cfg.Trading.PollInterval) * time.Second,
		backoff:      time.Duration(cfg.Trading.BackoffInterval) * time.Second,
	}, nil
}

// Initialize validates the configured symbol and prefetches its trading
// rules. Both failures are fatal: the loop must never run against an
// unknown pair or unknown constraints.
func (e *Engine) Initialize() error {
	symbol := e.cfg.Trading.Symbol

	e.logger.Info("Validating trading symbol...", zap.String("symbol", symbol))
	if err := e.constraints.ValidateSymbol(symbol); err != nil {
		return fmt.Errorf("symbol validation failed: %w", err)
	}

	rules, err := e.constraints.Rules(symbol)
	if err != nil {
		return fmt.Errorf("could not resolve trading rules: %w", err)
	}
	e.logger.Info("Symbol validated",
		zap.String("symbol", symbol),
		zap.String("min_qty", rules.MinQty.String()),
		zap.String("step_size", rules.StepSize.String()),
		zap.String("min_notional", rules.MinNotional.String()),
	)
	return nil
}

// Run starts the trading loop and blocks until the context is cancelled.
// The current cycle always finishes; no new cycle starts after
// cancellation.
func (e *Engine) Run(ctx context.Context) {
	e.logger.Info("Starting trading loop",
		zap.String("symbol", e.cfg.Trading.Symbol),
		zap.Duration("interval", e.pollInterval),
	)

	for {
		wait, err := e.cycle()
		if err != nil {
			// Cycle boundary: log and carry on. Only startup errors kill
			// the process.
			e.logger.Error("Trading cycle failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			e.logger.Info("Stopping trading loop...")
			return
		case <-time.After(wait):
		}
	}
}

// cycle runs one fetch-decide-execute pass and returns how long to wait
// before the next one: the normal cadence, or the long backoff after a
// low balance or a rejected sell.
func (e *Engine) cycle() (time.Duration, error) {
	trading := &e.cfg.Trading

	series, err := e.fetchSeries()
	if err != nil {
		return e.pollInterval, err
	}

	avg, err := ComputeAverages(series, trading.ShortWindow, trading.LongWindow)
	if errors.Is(err, ErrInsufficientData) {
		e.logger.Info("Not enough price data yet, holding", zap.Int("points", len(series)))
		return e.pollInterval, nil
	}
	if err != nil {
		return e.pollInterval, err
	}

	decision := Decide(avg)
	e.logger.Info("Decision made",
		zap.String("decision", decision.String()),
		zap.Float64("short_avg", avg.Short),
		zap.Float64("long_avg", avg.Long),
	)

	// Read the balance first, then compare against the floor. The floor
	// pauses trading entirely while the quote balance is depleted.
	quoteFree, err := e.quoteFreeBalance()
	if err != nil {
		return e.pollInterval, err
	}
	if quoteFree.LessThan(e.balanceFloor) {
		e.logger.Info("Quote balance below floor, pausing trading",
			zap.String("free", quoteFree.String()),
			zap.String("floor", e.balanceFloor.String()),
			zap.Duration("backoff", e.backoff),
		)
		return e.backoff, nil
	}

	switch decision {
	case Buy:
		if err := e.executor.ExecuteBuy(); err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				return e.backoff, err
			}
			return e.pollInterval, err
		}
	case Sell:
		if err := e.executor.ExecuteSell(); err != nil {
			// A sub-minimum position cannot sell until the price moves;
			// re-trying every cycle would just storm the log.
			if errors.Is(err, ErrBelowMinimumOrderSize) || errors.Is(err, ErrBelowMinimumNotional) {
				e.logger.Info("Sell rejected below exchange minimums, entering cooldown",
					zap.Duration("cooldown", e.backoff))
				return e.backoff, err
			}
			return e.pollInterval, err
		}
	default:
		e.logger.Info("No action required.")
	}

	return e.pollInterval, nil
}

// fetchSeries pulls recent klines and converts them into an ordered price
// series, oldest first.
func (e *Engine) fetchSeries() ([]PricePoint, error) {
	trading := &e.cfg.Trading

	klines, err := e.client.GetKlines(trading.Symbol, trading.Interval, trading.KlineLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeUnavailable, err)
	}

	series := make([]PricePoint, 0, len(klines))
	for _, k := range klines {
		closePrice, err := strconv.ParseFloat(k.Close, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad close price %q", ErrExchangeUnavailable, k.Close)
		}
		series = append(series, PricePoint{
			Time:  time.UnixMilli(k.OpenTime),
			Close: closePrice,
		})
	}
	return series, nil
}

func (e *Engine) quoteFreeBalance() (decimal.Decimal, error) {
	balance, err := e.client.GetAssetBalance(e.cfg.Trading.QuoteAsset)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrExchangeUnavailable, err)
	}
	free, err := decimal.NewFromString(balance.Free)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad free balance %q", ErrExchangeUnavailable, balance.Free)
	}
	return free, nil
}
