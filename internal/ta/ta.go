// Package ta computes technical indicator series over candle data.
//
// Every function is a pure transform: it takes value slices and returns
// slices aligned to the input, with NaN marking the warm-up window where the
// indicator is not yet defined.
package ta

import "math"

// SMA returns the simple moving average over a rolling window of n values.
// The first n-1 entries are NaN.
func SMA(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= n {
			sum -= values[i-n]
		}
		if i >= n-1 {
			out[i] = sum / float64(n)
		}
	}
	return out
}

// EMA returns the exponential moving average with period n, seeded from the
// SMA of the first n values. The first n-1 entries are NaN.
func EMA(values []float64, n int) []float64 {
	return emaFrom(values, n, 0)
}

// emaFrom computes an EMA starting at offset, treating values before offset
// as absent. Used to chain EMAs over series with a NaN warm-up prefix.
func emaFrom(values []float64, n, offset int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values)-offset < n {
		return out
	}
	seed := 0.0
	for i := offset; i < offset+n; i++ {
		seed += values[i]
	}
	prev := seed / float64(n)
	out[offset+n-1] = prev
	k := 2.0 / float64(n+1)
	for i := offset + n; i < len(values); i++ {
		prev = values[i]*k + prev*(1-k)
		out[i] = prev
	}
	return out
}

// RSI returns Wilder's relative strength index with the given period. The
// initial average gain/loss is the simple mean of the first period deltas,
// smoothed thereafter. The first period entries are NaN; defined values are
// always within [0, 100].
func RSI(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period+1 {
		return out
	}
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		d := values[i] - values[i-1]
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(values); i++ {
		d := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

// StdDev returns the rolling population standard deviation over a window of
// n values. The first n-1 entries are NaN.
func StdDev(values []float64, n int) []float64 {
	out := nanSlice(len(values))
	if n <= 0 || len(values) < n {
		return out
	}
	means := SMA(values, n)
	for i := n - 1; i < len(values); i++ {
		m := means[i]
		s := 0.0
		for j := i - n + 1; j <= i; j++ {
			d := values[j] - m
			s += d * d
		}
		out[i] = math.Sqrt(s / float64(n))
	}
	return out
}

// Bollinger returns the (upper, middle, lower) Bollinger Bands: the rolling
// SMA plus/minus k rolling standard deviations.
func Bollinger(values []float64, n int, k float64) (upper, middle, lower []float64) {
	middle = SMA(values, n)
	sd := StdDev(values, n)
	upper = nanSlice(len(values))
	lower = nanSlice(len(values))
	for i := range values {
		if math.IsNaN(middle[i]) || math.IsNaN(sd[i]) {
			continue
		}
		upper[i] = middle[i] + k*sd[i]
		lower[i] = middle[i] - k*sd[i]
	}
	return upper, middle, lower
}

// MACD returns the MACD line (EMA(fast) - EMA(slow)) and its signal line
// (EMA of the MACD line with the signal period).
func MACD(values []float64, fast, slow, signal int) (macdLine, signalLine []float64) {
	macdLine = nanSlice(len(values))
	signalLine = nanSlice(len(values))
	if fast <= 0 || slow <= fast || signal <= 0 {
		return macdLine, signalLine
	}
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	for i := range values {
		if math.IsNaN(emaFast[i]) || math.IsNaN(emaSlow[i]) {
			continue
		}
		macdLine[i] = emaFast[i] - emaSlow[i]
	}
	// Signal line is an EMA over the defined region of the MACD line.
	if len(values) >= slow {
		signalLine = emaFrom(macdLine, signal, slow-1)
	}
	return macdLine, signalLine
}

// VWAP returns the cumulative volume-weighted average price over the whole
// series, using typical price (H+L+C)/3. There is no intraday reset; the
// accumulation runs from the first bar. Entries before the first traded
// volume are NaN.
func VWAP(highs, lows, closes, volumes []float64) []float64 {
	out := nanSlice(len(closes))
	if len(highs) != len(closes) || len(lows) != len(closes) || len(volumes) != len(closes) {
		return out
	}
	cumPV, cumVol := 0.0, 0.0
	for i := range closes {
		typical := (highs[i] + lows[i] + closes[i]) / 3.0
		cumPV += typical * volumes[i]
		cumVol += volumes[i]
		if cumVol > 0 {
			out[i] = cumPV / cumVol
		}
	}
	return out
}

// FillMean replaces NaN entries with the mean of the defined entries,
// in place. A column with no defined entries is left untouched. Filling an
// already fully-defined column is a no-op.
func FillMean(values []float64) {
	sum, n := 0.0, 0
	for _, v := range values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return
	}
	mean := sum / float64(n)
	for i, v := range values {
		if math.IsNaN(v) {
			values[i] = mean
		}
	}
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
