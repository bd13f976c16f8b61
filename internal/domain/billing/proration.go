package billing

import (
	"fmt"
	"math"
)

// Allocation is the split of a bill between insurance and patient.
type Allocation struct {
	Items                 []LineItem
	Subtotal              float64
	InsuranceCoverage     float64
	PatientResponsibility float64
}

// Prorate prices the line items and spreads coverage across them in
// proportion to each item's share of the total. Coverage is the smaller of
// balance and total; a nil balance means nothing is covered. Amounts are
// kept unrounded. The input slice is not modified.
func Prorate(items []LineItem, balance *float64) Allocation {
	out := make([]LineItem, len(items))
	var total float64
	for i, it := range items {
		it.TotalPrice = it.UnitPrice * float64(it.Quantity)
		it.InsuranceCovered = 0
		it.PatientPortion = it.TotalPrice
		out[i] = it
		total += it.TotalPrice
	}

	a := Allocation{Items: out, Subtotal: total, PatientResponsibility: total}
	if balance == nil || *balance <= 0 || total <= 0 {
		return a
	}

	a.InsuranceCoverage = math.Min(*balance, total)
	a.PatientResponsibility = total - a.InsuranceCoverage
	for i := range out {
		covered := a.InsuranceCoverage * (out[i].TotalPrice / total)
		if covered > out[i].TotalPrice {
			covered = out[i].TotalPrice
		}
		out[i].InsuranceCovered = covered
		out[i].PatientPortion = out[i].TotalPrice - covered
	}
	return a
}

// FormatAmount renders a currency amount rounded to cents.
func FormatAmount(v float64) string {
	return fmt.Sprintf("%.2f", math.Round(v*100)/100)
}
