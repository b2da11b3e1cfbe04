package market

import "github.com/shopspring/decimal"

// FeeBreakdown itemizes the charges on a single trade.
type FeeBreakdown struct {
	Brokerage   decimal.Decimal
	STT         decimal.Decimal
	Transaction decimal.Decimal
	GST         decimal.Decimal
	SEBI        decimal.Decimal
	Total       decimal.Decimal
}

// CalculateFees itemizes charges on tradeValue. STT is levied on the sell
// side only; GST applies to brokerage plus transaction charges; every
// component is linear in tradeValue.
func (r *Rules) CalculateFees(tradeValue decimal.Decimal, isSell bool) FeeBreakdown {
	rates := r.cfg.Fees
	b := FeeBreakdown{
		Brokerage:   tradeValue.Mul(rates.Brokerage),
		Transaction: tradeValue.Mul(rates.Transaction),
		SEBI:        tradeValue.Mul(rates.SEBI),
	}
	if isSell {
		b.STT = tradeValue.Mul(rates.STT)
	}
	b.GST = b.Brokerage.Add(b.Transaction).Mul(rates.GST)
	b.Total = b.Brokerage.Add(b.STT).Add(b.Transaction).Add(b.GST).Add(b.SEBI)
	return b
}
