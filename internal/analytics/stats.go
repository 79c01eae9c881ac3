// Package analytics holds the deterministic statistics behind the dashboard,
// cash-flow, analytics and assistant endpoints. Every function is pure.
package analytics

import "math"

// Mean returns the arithmetic mean, 0 for an empty series
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation, 0 for fewer than two values
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := Mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(values)))
}

// ZScore returns (value-mean)/stddev, 0 when stddev is 0
func ZScore(value, mean, stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	return (value - mean) / stddev
}

// CoefficientOfVariation is stddev/|mean|, 0 when the mean is 0
func CoefficientOfVariation(values []float64) float64 {
	m := Mean(values)
	if m == 0 {
		return 0
	}
	return StdDev(values) / math.Abs(m)
}

// Trend is a least-squares line fitted over x = 0..n-1
type Trend struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
}

// LinearTrend fits y = slope*x + intercept
func LinearTrend(values []float64) Trend {
	n := float64(len(values))
	if len(values) == 0 {
		return Trend{}
	}
	if len(values) == 1 {
		return Trend{Intercept: values[0]}
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return Trend{Intercept: sumY / n}
	}
	slope := (n*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, y := range values {
		pred := slope*float64(i) + intercept
		ssRes += (y - pred) * (y - pred)
		ssTot += (y - meanY) * (y - meanY)
	}
	r2 := 0.0
	if ssTot > 0 {
		r2 = 1 - ssRes/ssTot
	}

	return Trend{Slope: slope, Intercept: intercept, RSquared: r2}
}

// Project returns the fitted value at x
func (t Trend) Project(x int) float64 {
	return t.Slope*float64(x) + t.Intercept
}

// Direction tags a slope relative to the series mean: up, down or flat within ±2%.
func Direction(slope, mean float64) string {
	if mean == 0 {
		switch {
		case slope > 0:
			return "up"
		case slope < 0:
			return "down"
		}
		return "flat"
	}
	rel := slope / math.Abs(mean)
	switch {
	case rel > 0.02:
		return "up"
	case rel < -0.02:
		return "down"
	}
	return "flat"
}

// PercentChange returns (current-previous)/previous*100, 0 when previous is 0
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / math.Abs(previous) * 100
}

// Ratio returns a/b, 0 when b is 0
func Ratio(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Round2 rounds to two decimal places
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Clamp bounds v to [lo, hi]
func Clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
