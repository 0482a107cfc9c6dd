package dataflows

import (
	"math"
	"sort"

	"github.com/dyike/CortexFolio/internal/models"
)

// ComputeIndicators summarises series at its last bar. It returns nil for
// an empty series.
func ComputeIndicators(series *models.PriceSeries) *models.Indicators {
	if series == nil || len(series.Bars) == 0 {
		return nil
	}
	bars := append([]models.PriceBar(nil), series.Bars...)
	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}

	out := &models.Indicators{
		Source: series.Source,
		AsOf:   bars[len(bars)-1].Date.Format("2006-01-02"),
		SMA20:  sma(closes, 20),
		SMA50:  sma(closes, 50),
		EMA10:  last(ema(closes, 10)),
		RSI14:  rsi(closes, 14),
		ATR14:  atr(bars, 14),
	}
	out.MACD, out.MACDSignal = macd(closes)
	out.BollUpper, out.BollLower = bollinger(closes, 20, 2)
	return out
}

func last(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	return &v
}

func sma(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	v := sum / float64(period)
	return &v
}

// ema returns one value per bar from index period-1 on, seeded with the SMA
// of the first period closes.
func ema(closes []float64, period int) []float64 {
	if len(closes) < period {
		return nil
	}
	k := 2.0 / (float64(period) + 1.0)
	var seed float64
	for _, c := range closes[:period] {
		seed += c
	}
	out := []float64{seed / float64(period)}
	for _, c := range closes[period:] {
		prev := out[len(out)-1]
		out = append(out, c*k+prev*(1-k))
	}
	return out
}

// rsi uses Wilder smoothing.
func rsi(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}
	var avgGain, avgLoss float64
	for i := 1; i <= period; i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	for i := period + 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}
	v := 100.0
	if avgLoss != 0 {
		v = 100 - 100/(1+avgGain/avgLoss)
	}
	return &v
}

// macd is EMA12 - EMA26 with a 9-period signal line.
func macd(closes []float64) (*float64, *float64) {
	fast, slow := ema(closes, 12), ema(closes, 26)
	if len(slow) == 0 {
		return nil, nil
	}
	// fast starts 14 bars before slow.
	offset := len(fast) - len(slow)
	line := make([]float64, len(slow))
	for i := range slow {
		line[i] = fast[i+offset] - slow[i]
	}
	return last(line), last(ema(line, 9))
}

func bollinger(closes []float64, period int, width float64) (*float64, *float64) {
	mid := sma(closes, period)
	if mid == nil {
		return nil, nil
	}
	var variance float64
	for _, c := range closes[len(closes)-period:] {
		d := c - *mid
		variance += d * d
	}
	sd := math.Sqrt(variance / float64(period))
	upper, lower := *mid+width*sd, *mid-width*sd
	return &upper, &lower
}

func atr(bars []models.PriceBar, period int) *float64 {
	if len(bars) < period+1 {
		return nil
	}
	var sum float64
	for i := len(bars) - period; i < len(bars); i++ {
		prev := bars[i-1].Close
		tr := math.Max(bars[i].High-bars[i].Low, math.Max(math.Abs(bars[i].High-prev), math.Abs(bars[i].Low-prev)))
		sum += tr
	}
	v := sum / float64(period)
	return &v
}
