package dataflows

import (
	"math"
	"testing"
	"time"

	"github.com/dyike/CortexFolio/internal/models"
)

func linearSeries(n int) *models.PriceSeries {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.PriceBar, n)
	// Reverse order to check that bars are sorted by date first.
	for i := 0; i < n; i++ {
		c := float64(100 + i)
		bars[n-1-i] = models.PriceBar{Date: start.AddDate(0, 0, i), Open: c, High: c + 1, Low: c - 1, Close: c}
	}
	return &models.PriceSeries{Symbol: "TEST", Source: "yahoo", Bars: bars}
}

func near(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Fatalf("%s is nil", name)
	}
	if math.Abs(*got-want) > 1e-9 {
		t.Fatalf("%s = %v, want %v", name, *got, want)
	}
}

func TestComputeIndicatorsOnRisingSeries(t *testing.T) {
	ind := ComputeIndicators(linearSeries(60))
	if ind == nil || ind.AsOf != "2025-03-01" || ind.Source != "yahoo" {
		t.Fatalf("indicators = %+v", ind)
	}
	// closes run 100..159
	near(t, "sma20", ind.SMA20, 149.5)
	near(t, "sma50", ind.SMA50, 134.5)
	near(t, "rsi14", ind.RSI14, 100)
	// each bar spans high-low 2 and gaps 1 from the previous close
	near(t, "atr14", ind.ATR14, 2)
	if ind.MACD == nil || *ind.MACD <= 0 || ind.MACDSignal == nil {
		t.Fatalf("macd = %v signal = %v", ind.MACD, ind.MACDSignal)
	}
	if *ind.BollUpper <= *ind.SMA20 || *ind.BollLower >= *ind.SMA20 {
		t.Fatalf("bands %v..%v around %v", *ind.BollLower, *ind.BollUpper, *ind.SMA20)
	}
}

func TestComputeIndicatorsShortSeries(t *testing.T) {
	if ComputeIndicators(nil) != nil || ComputeIndicators(&models.PriceSeries{}) != nil {
		t.Fatalf("empty series should give nil")
	}
	ind := ComputeIndicators(linearSeries(12))
	if ind.EMA10 == nil {
		t.Fatalf("ema10 missing for 12 bars")
	}
	if ind.SMA20 != nil || ind.RSI14 != nil || ind.MACD != nil || ind.ATR14 != nil {
		t.Fatalf("indicators computed without enough bars: %+v", ind)
	}
}
