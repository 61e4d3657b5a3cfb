package trader

import "errors"

// Error kinds for everything that can go wrong inside a trading cycle.
// The loop boundary classifies them with errors.Is to decide between
// continuing on the normal cadence, backing off, or (at startup) exiting.
var (
	// ErrInsufficientData means the price series is shorter than a
	// moving-average window. Resolves itself as more candles accrue.
	ErrInsufficientData = errors.New("insufficient price data for moving averages")

	// ErrSymbolNotFound means the configured trading pair is not listed
	// on the exchange. Fatal at startup.
	ErrSymbolNotFound = errors.New("symbol not listed on exchange")

	// ErrConstraintsUnavailable means the symbol's trading rules could
	// not be determined, either because the metadata fetch failed or a
	// required filter is structurally absent. Unknown rules are never
	// substituted with zeroes.
	ErrConstraintsUnavailable = errors.New("symbol trading constraints unavailable")

	// ErrExchangeUnavailable covers transport failures, timeouts and
	// rate limiting on any exchange call. Transient.
	ErrExchangeUnavailable = errors.New("exchange unavailable")

	// ErrInsufficientBalance means the free balance cannot afford the
	// symbol's minimum order. Expected steady state, logged and backed off.
	ErrInsufficientBalance = errors.New("insufficient balance for minimum order")

	// ErrBelowMinimumOrderSize means a sized quantity fell below the
	// symbol's minQty after flooring to the step size.
	ErrBelowMinimumOrderSize = errors.New("quantity below minimum order size")

	// ErrBelowMinimumNotional means quantity times price fell below the
	// symbol's minimum notional value.
	ErrBelowMinimumNotional = errors.New("order value below minimum notional")

	// ErrOrderRejected means the exchange refused a submitted order.
	// Never retried within the same cycle.
	ErrOrderRejected = errors.New("order rejected by exchange")
)
