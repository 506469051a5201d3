// Package aggregate resamples load frames, builds totals and compiles runs.
package aggregate

import (
	"math"
	"time"

	"community-load/internal/model"
)

// bucketing describes a calendar resolution: start returns the bucket containing t,
// next the following bucket start and label the timestamp the bucket is reported at.
type bucketing struct {
	start func(time.Time) time.Time
	next  func(time.Time) time.Time
	label func(time.Time) time.Time
}

func identity(t time.Time) time.Time { return t }

var (
	hourly = bucketing{
		start: func(t time.Time) time.Time { return t.UTC().Truncate(time.Hour) },
		next:  func(t time.Time) time.Time { return t.Add(time.Hour) },
		label: identity,
	}
	daily = bucketing{
		start: func(t time.Time) time.Time {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		},
		next:  func(t time.Time) time.Time { return t.AddDate(0, 0, 1) },
		label: identity,
	}
	// Monthly buckets are labeled at month end, 00:00 of the last day.
	monthly = bucketing{
		start: func(t time.Time) time.Time {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		},
		next:  func(t time.Time) time.Time { return t.AddDate(0, 1, 0) },
		label: func(t time.Time) time.Time { return t.AddDate(0, 1, -1) },
	}
)

// ResampleHourlySum sums every numeric column into contiguous hourly buckets.
// NaN values are skipped and buckets without data are 0. Text columns are dropped.
func ResampleHourlySum(f *model.Frame) *model.Frame { return resample(f, hourly, false, f.Columns()) }

// ResampleHourlyMean averages every numeric column into hourly buckets. Empty buckets are NaN.
func ResampleHourlyMean(f *model.Frame) *model.Frame { return resample(f, hourly, true, f.Columns()) }

// DailySum sums numeric columns per calendar day.
func DailySum(f *model.Frame) *model.Frame { return resample(f, daily, false, f.Columns()) }

// MonthlySum sums numeric columns per calendar month.
func MonthlySum(f *model.Frame) *model.Frame { return resample(f, monthly, false, f.Columns()) }

// DailyMean averages col per calendar day. It returns an empty frame when col is absent.
func DailyMean(f *model.Frame, col string) *model.Frame {
	if !f.Has(col) {
		return model.NewFrame(nil)
	}
	return resample(f, daily, true, []string{col})
}

// MonthlyMean averages col per calendar month. It returns an empty frame when col is absent.
func MonthlyMean(f *model.Frame, col string) *model.Frame {
	if !f.Has(col) {
		return model.NewFrame(nil)
	}
	return resample(f, monthly, true, []string{col})
}

func resample(f *model.Frame, b bucketing, mean bool, cols []string) *model.Frame {
	if f.Empty() {
		out := model.NewFrame(nil)
		for _, c := range cols {
			out.Set(c, []float64{})
		}
		return out
	}

	first, last := b.start(f.Index[0]), b.start(f.Index[0])
	for _, ts := range f.Index[1:] {
		s := b.start(ts)
		if s.Before(first) {
			first = s
		}
		if s.After(last) {
			last = s
		}
	}
	var starts []time.Time
	pos := map[int64]int{}
	for s := first; !s.After(last); s = b.next(s) {
		pos[s.UnixNano()] = len(starts)
		starts = append(starts, s)
	}
	rowBucket := make([]int, f.Len())
	for i, ts := range f.Index {
		rowBucket[i] = pos[b.start(ts).UnixNano()]
	}

	index := make([]time.Time, len(starts))
	for i, s := range starts {
		index[i] = b.label(s)
	}
	out := model.NewFrame(index)
	for _, c := range cols {
		src := f.Col(c)
		sums := make([]float64, len(starts))
		counts := make([]int, len(starts))
		for i, v := range src {
			if math.IsNaN(v) {
				continue
			}
			sums[rowBucket[i]] += v
			counts[rowBucket[i]]++
		}
		if mean {
			for i := range sums {
				if counts[i] == 0 {
					sums[i] = math.NaN()
				} else {
					sums[i] /= float64(counts[i])
				}
			}
		}
		out.Set(c, sums)
	}
	return out
}
