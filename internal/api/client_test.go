package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const klineJSON = `{
	"rc": 0,
	"data": {
		"code": "000001",
		"market": 0,
		"name": "平安银行",
		"prePrice": 10.40,
		"klines": [
			"2025-06-02,10.55,10.70,10.80,10.50,1234567,1318000000.00,2.88,2.88,0.30,0.97",
			"2025-06-03,10.70,10.55,10.75,10.45,987654,1043000000.50,2.80,-1.40,-0.15,0.78"
		]
	}
}`

func TestGetDailyBars(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/qt/stock/kline/get" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = map[string]string{
			"secid": r.URL.Query().Get("secid"),
			"klt":   r.URL.Query().Get("klt"),
			"beg":   r.URL.Query().Get("beg"),
			"end":   r.URL.Query().Get("end"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(klineJSON))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeout(5*time.Second))
	bars, err := client.GetDailyBars(context.Background(), "000001.SZ", "20250601", "20250630")
	if err != nil {
		t.Fatalf("GetDailyBars: %v", err)
	}

	if gotQuery["secid"] != "0.000001" {
		t.Errorf("secid = %q, want 0.000001", gotQuery["secid"])
	}
	if gotQuery["klt"] != "101" {
		t.Errorf("klt = %q, want 101", gotQuery["klt"])
	}
	if gotQuery["beg"] != "20250601" || gotQuery["end"] != "20250630" {
		t.Errorf("date range = %q..%q", gotQuery["beg"], gotQuery["end"])
	}

	if len(bars) != 2 {
		t.Fatalf("got %d bars, want 2", len(bars))
	}

	first := bars[0]
	if first.Symbol != "000001.SZ" {
		t.Errorf("Symbol = %q, want 000001.SZ", first.Symbol)
	}
	if first.TradeDate.Format("2006-01-02") != "2025-06-02" {
		t.Errorf("TradeDate = %v", first.TradeDate)
	}
	if first.Open != 1055 || first.Close != 1070 || first.High != 1080 || first.Low != 1050 {
		t.Errorf("OHLC = %d/%d/%d/%d, want 1055/1070/1080/1050",
			first.Open, first.Close, first.High, first.Low)
	}
	if first.Change != 30 || first.PreClose != 1040 {
		t.Errorf("Change = %d, PreClose = %d, want 30, 1040", first.Change, first.PreClose)
	}
	if first.PctChange != 288 {
		t.Errorf("PctChange = %d, want 288", first.PctChange)
	}
	if first.Volume != 1234567 {
		t.Errorf("Volume = %d, want 1234567", first.Volume)
	}
	if first.Amount != 1318000000 {
		t.Errorf("Amount = %d, want 1318000000", first.Amount)
	}

	second := bars[1]
	if second.PctChange != -140 || second.Change != -15 {
		t.Errorf("negative day: PctChange = %d, Change = %d, want -140, -15",
			second.PctChange, second.Change)
	}
}

func TestGetDailyBars_ShanghaiSecID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("secid"); got != "1.600000" {
			t.Errorf("secid = %q, want 1.600000", got)
		}
		w.Write([]byte(`{"rc":0,"data":null}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	bars, err := client.GetDailyBars(context.Background(), "600000.SH", "", "")
	if err != nil {
		t.Fatalf("GetDailyBars: %v", err)
	}
	if bars != nil {
		t.Errorf("bars = %v, want nil for empty data", bars)
	}
}

func TestGetDailyBars_InvalidSymbol(t *testing.T) {
	client := NewClient("http://unused.invalid")
	if _, err := client.GetDailyBars(context.Background(), "nope", "", ""); err == nil {
		t.Error("expected error for invalid symbol")
	}
}

func TestGetDailyBars_RateLimitError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.GetDailyBars(context.Background(), "000001.SZ", "", "")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode = %d, want 429", apiErr.StatusCode)
	}
	if !apiErr.IsRateLimit() {
		t.Error("IsRateLimit() = false, want true")
	}
}

func TestGetDailyBars_NoRetry(t *testing.T) {
	// The client must surface errors immediately: the adaptive limiter owns
	// retries on this path, and client-level retries would mask rate-limit
	// signals from the detector.
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.GetDailyBars(context.Background(), "000001.SZ", "", ""); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("upstream called %d times, want exactly 1", calls)
	}
}

func TestGetStockList(t *testing.T) {
	pages := []string{
		`{"rc":0,"data":{"total":3,"diff":[
			{"f12":"000001","f13":0,"f14":"平安银行"},
			{"f12":"600000","f13":1,"f14":"浦发银行"}
		]}}`,
		`{"rc":0,"data":{"total":3,"diff":[
			{"f12":"300750","f13":0,"f14":"宁德时代"}
		]}}`,
	}
	var page int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/qt/clist/get" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if page >= len(pages) {
			w.Write([]byte(`{"rc":0,"data":null}`))
			return
		}
		w.Write([]byte(pages[page]))
		page++
	}))
	defer server.Close()

	client := NewClient(server.URL)
	stocks, err := client.GetStockList(context.Background())
	if err != nil {
		t.Fatalf("GetStockList: %v", err)
	}

	if len(stocks) != 3 {
		t.Fatalf("got %d stocks, want 3", len(stocks))
	}
	if stocks[0].Symbol != "000001.SZ" || stocks[0].Name != "平安银行" {
		t.Errorf("stocks[0] = %+v", stocks[0])
	}
	if stocks[1].Symbol != "600000.SH" || stocks[1].Exchange != "SH" {
		t.Errorf("stocks[1] = %+v", stocks[1])
	}
	if stocks[2].Symbol != "300750.SZ" {
		t.Errorf("stocks[2] = %+v", stocks[2])
	}
}

func TestParseKline_Malformed(t *testing.T) {
	if _, err := parseKline("000001.SZ", "2025-06-02,10.55"); err == nil {
		t.Error("expected error for truncated kline")
	}
	if _, err := parseKline("000001.SZ", "notadate,1,2,3,4,5,6,7,8,9,10"); err == nil {
		t.Error("expected error for bad date")
	}
}
