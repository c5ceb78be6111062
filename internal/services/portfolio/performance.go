package portfolio

import (
	"gonum.org/v1/gonum/stat"

	"FinAdvisor/internal/domain/models"
)

// ComputeMetrics derives ROI, Sharpe and max drawdown from a nav series.
func ComputeMetrics(navs []float64) models.PerformanceMetrics {
	if len(navs) == 0 {
		return models.PerformanceMetrics{}
	}
	return models.PerformanceMetrics{
		ROI:         ROI(navs[0], navs[len(navs)-1]),
		Sharpe:      SharpeRatio(navs),
		MaxDrawdown: MaxDrawdown(navs),
	}
}

// ROI is the relative change from first to last nav; 0 when first <= 0.
func ROI(first, last float64) float64 {
	if first <= 0 {
		return 0
	}
	return (last - first) / first
}

// PctChange returns period-over-period returns. A non-positive previous
// value yields a 0 return for that step.
func PctChange(series []float64) []float64 {
	if len(series) < 2 {
		return nil
	}
	out := make([]float64, 0, len(series)-1)
	for i := 1; i < len(series); i++ {
		prev := series[i-1]
		if prev > 0 {
			out = append(out, series[i]/prev-1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

// SharpeRatio is mean(returns)/stdev(returns) with the n-1 denominator.
// Fewer than two returns or a zero deviation yield 0.
func SharpeRatio(navs []float64) float64 {
	returns := PctChange(navs)
	if len(returns) < 2 {
		return 0
	}
	sd := stat.StdDev(returns, nil)
	if !(sd > 0) {
		return 0
	}
	return stat.Mean(returns, nil) / sd
}

// MaxDrawdown is the largest (peak-nav)/peak over the series.
func MaxDrawdown(navs []float64) float64 {
	if len(navs) == 0 {
		return 0
	}
	peak := navs[0]
	var mdd float64
	for _, nav := range navs {
		if nav > peak {
			peak = nav
		}
		if peak > 0 {
			if dd := (peak - nav) / peak; dd > mdd {
				mdd = dd
			}
		}
	}
	return mdd
}
