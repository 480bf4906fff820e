package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/filesystem"
)

// ComparisonRow aligns one year of the Hot-100 (ranks 6-100) bag-of-words
// series with the same year of the Top-5 lyrics series. TTR is the one
// metric both sides compute the same way, so the comparison runs on it.
type ComparisonRow struct {
	Year int
	Hot  YearlyStat
	Top5 YearlyStat
}

// CompareYearly pairs the two yearly series on their common years. Years
// present in only one series are dropped; results come back sorted by year.
// Both inputs are expected sorted, as YearlyMean returns them.
func CompareYearly(hot, top5 []YearlyStat) []ComparisonRow {
	topByYear := make(map[int]YearlyStat, len(top5))
	for _, s := range top5 {
		topByYear[s.Year] = s
	}

	var out []ComparisonRow
	for _, h := range hot {
		t, ok := topByYear[h.Year]
		if !ok {
			continue
		}
		out = append(out, ComparisonRow{Year: h.Year, Hot: h, Top5: t})
	}
	return out
}

// HotSeries extracts the aligned Hot-100 yearly series.
func HotSeries(rows []ComparisonRow) []YearlyStat {
	out := make([]YearlyStat, len(rows))
	for i, r := range rows {
		out[i] = r.Hot
	}
	return out
}

// Top5Series extracts the aligned Top-5 yearly series.
func Top5Series(rows []ComparisonRow) []YearlyStat {
	out := make([]YearlyStat, len(rows))
	for i, r := range rows {
		out[i] = r.Top5
	}
	return out
}

// DiffSeries is the per-year Top-5 minus Hot-100 mean difference. Only the
// mean is meaningful on the result; it exists to be trend-fitted.
func DiffSeries(rows []ComparisonRow) []YearlyStat {
	out := make([]YearlyStat, len(rows))
	for i, r := range rows {
		out[i] = YearlyStat{Year: r.Year, Mean: r.Top5.Mean - r.Hot.Mean, N: r.Top5.N}
	}
	return out
}

// WriteComparisonCSV writes the aligned yearly comparison table.
func WriteComparisonCSV(path string, rows []ComparisonRow) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"year", "ttr_hot_mean", "ttr_hot_se", "ttr_hot_n",
		"ttr_top5_mean", "ttr_top5_se", "ttr_top5_n"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing comparison header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Year),
			formatFloat(r.Hot.Mean),
			formatFloat(r.Hot.SE),
			strconv.Itoa(r.Hot.N),
			formatFloat(r.Top5.Mean),
			formatFloat(r.Top5.SE),
			strconv.Itoa(r.Top5.N),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing comparison row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing comparison csv: %w", err)
	}
	return filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
