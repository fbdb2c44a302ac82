package kline

import "github.com/shopspring/decimal"

// GetSequence returns the feed assigned sequence number
func (b *Bar) GetSequence() int64 {
	return b.Sequence
}

// GetOpenPrice returns the bar's open price
func (b *Bar) GetOpenPrice() decimal.Decimal {
	return b.Open
}

// GetHighPrice returns the bar's high price
func (b *Bar) GetHighPrice() decimal.Decimal {
	return b.High
}

// GetLowPrice returns the bar's low price
func (b *Bar) GetLowPrice() decimal.Decimal {
	return b.Low
}

// GetClosePrice returns the bar's close price
func (b *Bar) GetClosePrice() decimal.Decimal {
	return b.Close
}

// GetVolume returns the bar's traded volume
func (b *Bar) GetVolume() decimal.Decimal {
	return b.Volume
}
