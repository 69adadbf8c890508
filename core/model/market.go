package model

import "fmt"

// Product identifies an electricity market product the district can sell into.
type Product int

const (
	DayAhead Product = iota
	Intraday
	FutureBase
	FuturePeak
)

// Products lists every market product in settlement order.
var Products = []Product{DayAhead, Intraday, FutureBase, FuturePeak}

// String returns the short label used in node names and KPI keys.
func (p Product) String() string {
	switch p {
	case DayAhead:
		return "da"
	case Intraday:
		return "id"
	case FutureBase:
		return "fb"
	case FuturePeak:
		return "fp"
	default:
		return "unknown"
	}
}

// Prices are the aligned price series of the four market products in
// currency per kWh. A Prices value is shared read-only between districts.
type Prices struct {
	dayAhead   Series
	intraday   Series
	futureBase Series
	futurePeak Series
}

// NewPrices copies the given series into an immutable Prices value. All series
// must have the same length.
func NewPrices(dayAhead, intraday, futureBase, futurePeak Series) (Prices, error) {
	n := len(dayAhead)
	for _, s := range []Series{intraday, futureBase, futurePeak} {
		if len(s) != n {
			return Prices{}, fmt.Errorf("price series length mismatch: %d != %d", len(s), n)
		}
	}
	return Prices{
		dayAhead:   dayAhead.Clone(),
		intraday:   intraday.Clone(),
		futureBase: futureBase.Clone(),
		futurePeak: futurePeak.Clone(),
	}, nil
}

// Len returns the number of steps covered by the prices.
func (p Prices) Len() int { return len(p.dayAhead) }

// At returns the price of product at step t.
func (p Prices) At(product Product, t int) float64 {
	return p.series(product)[t]
}

// Series returns a copy of the price series for product.
func (p Prices) Series(product Product) Series {
	return p.series(product).Clone()
}

func (p Prices) series(product Product) Series {
	switch product {
	case DayAhead:
		return p.dayAhead
	case Intraday:
		return p.intraday
	case FutureBase:
		return p.futureBase
	case FuturePeak:
		return p.futurePeak
	default:
		return nil
	}
}

// Head returns prices limited to the first n steps. The underlying arrays are
// shared, which is safe because Prices never mutates them.
func (p Prices) Head(n int) Prices {
	return Prices{
		dayAhead:   p.dayAhead.Head(n),
		intraday:   p.intraday.Head(n),
		futureBase: p.futureBase.Head(n),
		futurePeak: p.futurePeak.Head(n),
	}
}
