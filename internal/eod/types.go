package eod

// tradeLine mirrors the JSON format written by the tradelog package.
type tradeLine struct {
	Time    string
	Symbol  string
	Side    string // "BUY" or "SELL"
	Type    string
	Qty     int
	Price   float64
	OrderID string
	Tag     string
	Status  string
}

// aggRow accumulates per-symbol totals across the day's fills.
type aggRow struct {
	Symbol      string
	BuyQty      int
	BuyValue    float64
	SellQty     int
	SellValue   float64
	RealizedPnL float64
}
