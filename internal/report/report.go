// Package report writes the pipeline's analysis artifacts: the match-decision
// audit trail, per-track metric tables, yearly aggregates and OLS trend
// summaries. Every file goes out through the atomic writer.
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/chart"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/filesystem"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/linkage"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/textmetrics"
)

// WriteDecisionsCSV writes the audit trail, one row per query in input
// order. Unmatched queries keep their -1 score and empty source label.
func WriteDecisionsCSV(path string, decisions []linkage.Decision) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"year", "rank", "title", "artist", "matched_id", "match_score", "source_label"}); err != nil {
		return fmt.Errorf("writing audit header: %w", err)
	}
	for _, d := range decisions {
		rec := []string{
			strconv.Itoa(d.Query.Year),
			strconv.Itoa(d.Query.Rank),
			d.Query.Title,
			d.Query.Artist,
			d.MatchedID,
			strconv.Itoa(d.Score),
			string(d.Provenance),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing audit row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing audit csv: %w", err)
	}
	return filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// TrackRow is one analyzed track in the metrics table.
type TrackRow struct {
	chart.Entry
	textmetrics.Metrics
	IsTop5 bool
}

// WriteTrackMetricsCSV writes the per-track metric table.
func WriteTrackMetricsCSV(path string, rows []TrackRow) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"year", "rank", "title", "artist", "is_top5", "lines", "tokens",
		"ttr", "repetition", "compressibility", "entropy", "hhi", "max_p", "sentiment", "fk_grade"}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing metrics header: %w", err)
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Year),
			strconv.Itoa(r.Rank),
			r.Title,
			r.Artist,
			strconv.FormatBool(r.IsTop5),
			strconv.Itoa(r.Lines),
			strconv.Itoa(r.Tokens),
			formatFloat(r.TTR),
			formatFloat(r.Repetition),
			formatFloat(r.Compressibility),
			formatFloat(r.Entropy),
			formatFloat(r.HHI),
			formatFloat(r.MaxP),
			formatFloat(r.Sentiment),
			formatFloat(r.FKGrade),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing metrics row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing metrics csv: %w", err)
	}
	return filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// ReadTrackMetricsCSV reads a table written by WriteTrackMetricsCSV, for
// the trend stage. Malformed rows are skipped.
func ReadTrackMetricsCSV(path string) ([]TrackRow, error) {
	f, err := os.Open(path) //nolint:gosec // G304: path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("opening metrics csv: %w", err)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading metrics csv: %w", err)
	}

	var rows []TrackRow
	for i, rec := range records {
		if i == 0 || len(rec) < 15 {
			continue
		}
		year, err := strconv.Atoi(rec[0])
		if err != nil {
			continue
		}
		rank, err := strconv.Atoi(rec[1])
		if err != nil {
			continue
		}
		row := TrackRow{
			Entry:  chart.Entry{Year: year, Rank: rank, Title: rec[2], Artist: rec[3]},
			IsTop5: rec[4] == "true",
		}
		row.Lines, _ = strconv.Atoi(rec[5])
		row.Tokens, _ = strconv.Atoi(rec[6])
		row.TTR = parseFloat(rec[7])
		row.Repetition = parseFloat(rec[8])
		row.Compressibility = parseFloat(rec[9])
		row.Entropy = parseFloat(rec[10])
		row.HHI = parseFloat(rec[11])
		row.MaxP = parseFloat(rec[12])
		row.Sentiment = parseFloat(rec[13])
		row.FKGrade = parseFloat(rec[14])
		rows = append(rows, row)
	}
	return rows, nil
}

func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// Sample is one (year, value) observation feeding a yearly aggregate.
type Sample struct {
	Year  int
	Value float64
}

// YearlyStat is the aggregate of one year's samples.
type YearlyStat struct {
	Year int
	Mean float64
	Std  float64 // sample standard deviation; NaN when n == 1
	SE   float64 // Std / sqrt(n)
	N    int
}

// YearlyMean groups samples by year and aggregates each group. Years with
// fewer than minN samples are dropped; results come back sorted by year.
func YearlyMean(samples []Sample, minN int) []YearlyStat {
	byYear := make(map[int][]float64)
	for _, s := range samples {
		byYear[s.Year] = append(byYear[s.Year], s.Value)
	}

	out := make([]YearlyStat, 0, len(byYear))
	for year, vals := range byYear {
		if len(vals) < minN {
			continue
		}
		st := YearlyStat{
			Year: year,
			Mean: stat.Mean(vals, nil),
			Std:  stat.StdDev(vals, nil),
			N:    len(vals),
		}
		st.SE = st.Std / math.Sqrt(float64(st.N))
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// WriteYearlyCSV writes one metric's yearly aggregate table.
func WriteYearlyCSV(path string, stats []YearlyStat) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"year", "mean", "std", "se", "n"}); err != nil {
		return fmt.Errorf("writing yearly header: %w", err)
	}
	for _, s := range stats {
		rec := []string{
			strconv.Itoa(s.Year),
			formatFloat(s.Mean),
			formatFloat(s.Std),
			formatFloat(s.SE),
			strconv.Itoa(s.N),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing yearly row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing yearly csv: %w", err)
	}
	return filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// Trend is an ordinary-least-squares fit of a yearly mean series against
// time. Fewer than five points yields NaN slope/r2/p with N preserved.
type Trend struct {
	Metric    string
	N         int
	Slope     float64
	Intercept float64
	R2        float64
	P         float64 // two-sided p-value for the slope
}

// OLSTrend fits metric's yearly means against the year.
func OLSTrend(metric string, stats []YearlyStat) Trend {
	t := Trend{Metric: metric, N: len(stats), Slope: math.NaN(), Intercept: math.NaN(), R2: math.NaN(), P: math.NaN()}
	if len(stats) < 5 {
		return t
	}

	xs := make([]float64, len(stats))
	ys := make([]float64, len(stats))
	for i, s := range stats {
		xs[i] = float64(s.Year)
		ys[i] = s.Mean
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	t.Intercept = alpha
	t.Slope = beta
	t.R2 = stat.RSquared(xs, ys, nil, alpha, beta)
	t.P = slopePValue(xs, ys, alpha, beta)
	return t
}

// slopePValue computes the two-sided p-value of the slope via the t
// distribution with n-2 degrees of freedom.
func slopePValue(xs, ys []float64, alpha, beta float64) float64 {
	n := float64(len(xs))
	meanX := stat.Mean(xs, nil)

	var sse, sxx float64
	for i := range xs {
		resid := ys[i] - (alpha + beta*xs[i])
		sse += resid * resid
		dx := xs[i] - meanX
		sxx += dx * dx
	}
	if sxx == 0 || n <= 2 {
		return math.NaN()
	}
	seBeta := math.Sqrt(sse / (n - 2) / sxx)
	if seBeta == 0 {
		return 0
	}

	tStat := math.Abs(beta / seBeta)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: n - 2}
	return 2 * dist.Survival(tStat)
}

// WriteTrendsCSV writes the fitted trends, one metric per row.
func WriteTrendsCSV(path string, trends []Trend) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"metric", "n", "slope", "intercept", "r2", "p"}); err != nil {
		return fmt.Errorf("writing trends header: %w", err)
	}
	for _, tr := range trends {
		rec := []string{
			tr.Metric,
			strconv.Itoa(tr.N),
			formatFloat(tr.Slope),
			formatFloat(tr.Intercept),
			formatFloat(tr.R2),
			formatFloat(tr.P),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("writing trends row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing trends csv: %w", err)
	}
	return filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return ""
	}
	return strconv.FormatFloat(f, 'f', 6, 64)
}
