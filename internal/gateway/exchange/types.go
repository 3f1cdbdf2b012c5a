// Package exchange defines the broker contract the trading core talks to,
// so the scheduler and backtest pipeline never depend on a concrete REST client.
package exchange

import (
	"errors"
	"fmt"
	"time"
)

// ErrCircuitOpen is wrapped by a BrokerError when the client refuses to call a failing broker.
var ErrCircuitOpen = errors.New("broker circuit open")

// BrokerError is any failure reported by or on the way to the broker.
type BrokerError struct {
	Op     string // e.g. "create_order"
	Reason string
	Code   int // HTTP status, 0 when the request never got a response
	Err    error
}

func (e *BrokerError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("broker %s failed (%d): %s", e.Op, e.Code, e.Reason)
	}
	return fmt.Sprintf("broker %s failed: %s", e.Op, e.Reason)
}

func (e *BrokerError) Unwrap() error {
	return e.Err
}

// AccountSnapshot is an immutable view of the account at one point in time.
type AccountSnapshot struct {
	ID                string
	Currency          string
	Balance           float64
	NAV               float64
	UnrealizedPL      float64
	MarginAvailable   float64
	OpenTradeCount    int
	OpenPositionCount int
	Version           int64 // last transaction id; grows with every account change
	FetchedAt         time.Time
}

// Newer reports whether s reflects a later account state than other.
func (s AccountSnapshot) Newer(other AccountSnapshot) bool {
	return s.Version > other.Version
}

// OrderRequest is a market order; positive units buy, negative units sell.
type OrderRequest struct {
	Instrument string
	Units      int64
	ClientTag  string
}

type OrderConfirmation struct {
	OrderID       string
	TradeID       string
	Instrument    string
	Units         int64
	Price         float64
	TransactionID string
	Raw           []byte
}

type Confirmation struct {
	TransactionIDs []string
	RealizedPL     float64
	Raw            []byte
}

// Position is the aggregated exposure on one instrument.
type Position struct {
	Instrument   string
	LongUnits    float64
	ShortUnits   float64
	UnrealizedPL float64
}

func (p Position) HasLong() bool {
	return p.LongUnits != 0
}

func (p Position) HasShort() bool {
	return p.ShortUnits != 0
}

// Trade is one open fill.
type Trade struct {
	ID           string
	Instrument   string
	CurrentUnits float64
	Price        float64
	UnrealizedPL float64
	OpenTime     time.Time
}
