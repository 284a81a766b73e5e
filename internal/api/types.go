package api

// klineResponse is the envelope of the kline history endpoint.
type klineResponse struct {
	RC   int        `json:"rc"`
	Data *klineData `json:"data"`
}

// klineData carries the kline payload. Each kline is a comma-separated
// record: date,open,close,high,low,volume,amount,amplitude,pct_change,
// change,turnover.
type klineData struct {
	Code     string   `json:"code"`
	Market   int      `json:"market"`
	Name     string   `json:"name"`
	PrePrice float64  `json:"prePrice"`
	Klines   []string `json:"klines"`
}

// listResponse is the envelope of the stock list endpoint.
type listResponse struct {
	RC   int       `json:"rc"`
	Data *listData `json:"data"`
}

// listData carries one page of the listed-stock universe.
type listData struct {
	Total int        `json:"total"`
	Diff  []listItem `json:"diff"`
}

// listItem is one listed security. The quote host names fields f12/f13/f14:
// code, market (0 = Shenzhen, 1 = Shanghai) and display name.
type listItem struct {
	Code   string `json:"f12"`
	Market int    `json:"f13"`
	Name   string `json:"f14"`
}
