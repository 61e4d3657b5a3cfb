package trader

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"ma-crossover-bot-go/internal/binance"
)

// SymbolRules are the exchange-enforced trading constraints of a symbol:
// the LOT_SIZE filter's minimum quantity and quantity step, and the
// NOTIONAL filter's minimum order value.
type SymbolRules struct {
	MinQty      decimal.Decimal
	StepSize    decimal.Decimal
	MinNotional decimal.Decimal
}

// Constraints fetches and caches per-symbol trading rules from the
// exchange metadata. Rules are effectively immutable for the process
// lifetime: cached after the first successful fetch, re-fetched only
// when a previous fetch failed.
type Constraints struct {
	client binance.RestClientInterface
	logger *zap.Logger
	cache  map[string]SymbolRules
}

// NewConstraints creates a Constraints cache backed by the given client.
func NewConstraints(client binance.RestClientInterface, logger *zap.Logger) *Constraints {
	return &Constraints{
		client: client,
		logger: logger,
		cache:  make(map[string]SymbolRules),
	}
}

// ValidateSymbol fails with ErrSymbolNotFound when the trading pair is
// absent from the exchange's listing. Run at startup so the process never
// enters the loop against an unknown pair.
func (c *Constraints) ValidateSymbol(symbol string) error {
	info, err := c.client.GetExchangeInfo()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExchangeUnavailable, err)
	}
	for _, s := range info.Symbols {
		if s.Symbol == symbol {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
}

// Rules returns the trading rules for a symbol, fetching them from the
// exchange on the first call and serving the cache afterwards.
func (c *Constraints) Rules(symbol string) (SymbolRules, error) {
	if rules, ok := c.cache[symbol]; ok {
		return rules, nil
	}

	rules, err := c.fetch(symbol)
	if err != nil {
		return SymbolRules{}, err
	}

	c.cache[symbol] = rules
	c.logger.Info("Cached symbol trading rules",
		zap.String("symbol", symbol),
		zap.String("min_qty", rules.MinQty.String()),
		zap.String("step_size", rules.StepSize.String()),
		zap.String("min_notional", rules.MinNotional.String()),
	)
	return rules, nil
}

func (c *Constraints) fetch(symbol string) (SymbolRules, error) {
	info, err := c.client.GetExchangeInfo()
	if err != nil {
		return SymbolRules{}, fmt.Errorf("%w: %v", ErrExchangeUnavailable, err)
	}

	var symbolInfo *binance.SymbolInfo
	for i := range info.Symbols {
		if info.Symbols[i].Symbol == symbol {
			symbolInfo = &info.Symbols[i]
			break
		}
	}
	if symbolInfo == nil {
		return SymbolRules{}, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
	}

	// A structurally absent filter means the rule is unknown, not zero.
	// Defaulting to zero would let every order through the validation the
	// filter exists to enforce.
	var rules SymbolRules
	var haveLotSize, haveNotional bool
	for _, f := range symbolInfo.Filters {
		switch f.FilterType {
		case "LOT_SIZE":
			minQty, err := decimal.NewFromString(f.MinQty)
			if err != nil {
				return SymbolRules{}, fmt.Errorf("%w: bad minQty %q for %s", ErrConstraintsUnavailable, f.MinQty, symbol)
			}
			stepSize, err := decimal.NewFromString(f.StepSize)
			if err != nil {
				return SymbolRules{}, fmt.Errorf("%w: bad stepSize %q for %s", ErrConstraintsUnavailable, f.StepSize, symbol)
			}
			if stepSize.IsZero() {
				return SymbolRules{}, fmt.Errorf("%w: zero stepSize for %s", ErrConstraintsUnavailable, symbol)
			}
			rules.MinQty = minQty
			rules.StepSize = stepSize
			haveLotSize = true
		case "MIN_NOTIONAL", "NOTIONAL":
			minNotional, err := decimal.NewFromString(f.MinNotional)
			if err != nil {
				return SymbolRules{}, fmt.Errorf("%w: bad minNotional %q for %s", ErrConstraintsUnavailable, f.MinNotional, symbol)
			}
			rules.MinNotional = minNotional
			haveNotional = true
		}
	}

	if !haveLotSize {
		return SymbolRules{}, fmt.Errorf("%w: no LOT_SIZE filter for %s", ErrConstraintsUnavailable, symbol)
	}
	if !haveNotional {
		return SymbolRules{}, fmt.Errorf("%w: no NOTIONAL filter for %s", ErrConstraintsUnavailable, symbol)
	}

	return rules, nil
}
