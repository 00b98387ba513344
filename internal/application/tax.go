package application

// TaxPolicy は割引後の金額に対する税額を決める
type TaxPolicy interface {
	Tax(taxable int64) int64
}

// NoTax は常に0を返す
type NoTax struct{}

func (NoTax) Tax(int64) int64 { return 0 }

// BasisPointsTax は 1/10000 単位の税率で税額を計算する（四捨五入）
type BasisPointsTax struct {
	Rate int64
}

func (t BasisPointsTax) Tax(taxable int64) int64 {
	if taxable <= 0 || t.Rate <= 0 {
		return 0
	}
	return (taxable*t.Rate + 5000) / 10000
}

// NewTaxPolicy は税率が0なら NoTax を返す
func NewTaxPolicy(rateBasisPoints int) TaxPolicy {
	if rateBasisPoints <= 0 {
		return NoTax{}
	}
	return BasisPointsTax{Rate: int64(rateBasisPoints)}
}
