package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"taxtrail/internal/apperr"
)

func TestExchangeFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/LKR" {
			t.Fatalf("期望路径 /LKR, 实际 %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result":    "success",
			"base_code": "LKR",
			"rates":     map[string]float64{"LKR": 1, "USD": 0.0033, "EUR": 0.0031},
		})
	}))
	defer srv.Close()

	ex := NewExchangeRates(ExchangeOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	rates, err := ex.FetchRates(context.Background(), "lkr")
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if !rates["USD"].Equal(decimal.RequireFromString("0.0033")) {
		t.Fatalf("USD 汇率不正确: %s", rates["USD"])
	}
}

func TestExchangeFetchNonSuccessResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": "error", "error-type": "unsupported-code"})
	}))
	defer srv.Close()

	ex := NewExchangeRates(ExchangeOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := ex.FetchRates(context.Background(), "XYZ"); !errors.Is(err, apperr.RateFetchFailed) {
		t.Fatalf("result=error 应返回 RateFetchFailed, 实际 %v", err)
	}
}

func TestExchangeFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ex := NewExchangeRates(ExchangeOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	if _, err := ex.FetchRates(context.Background(), "LKR"); !errors.Is(err, apperr.RateFetchFailed) {
		t.Fatalf("HTTP 429 应返回 RateFetchFailed, 实际 %v", err)
	}
}
