package report

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCompareYearlyCommonYears(t *testing.T) {
	hot := []YearlyStat{
		{Year: 1991, Mean: 0.50, SE: 0.01, N: 40},
		{Year: 1992, Mean: 0.52, SE: 0.01, N: 35},
		{Year: 1994, Mean: 0.55, SE: 0.02, N: 30},
	}
	top5 := []YearlyStat{
		{Year: 1991, Mean: 0.60, SE: 0.03, N: 5},
		{Year: 1993, Mean: 0.61, SE: 0.03, N: 5},
		{Year: 1994, Mean: 0.63, SE: 0.03, N: 5},
	}

	cmp := CompareYearly(hot, top5)
	if len(cmp) != 2 {
		t.Fatalf("len(cmp) = %d, want 2", len(cmp))
	}
	if cmp[0].Year != 1991 || cmp[1].Year != 1994 {
		t.Errorf("years = %d, %d, want 1991, 1994", cmp[0].Year, cmp[1].Year)
	}
	if cmp[0].Hot.N != 40 || cmp[0].Top5.N != 5 {
		t.Errorf("1991 sample counts wrong: %+v", cmp[0])
	}
}

// A year whose rank 6-100 side falls under the per-year minimum must drop out
// of the comparison even when the Top-5 side has it.
func TestCompareYearlyMinNFilter(t *testing.T) {
	var hotSamples, topSamples []Sample
	for i := 0; i < 25; i++ {
		hotSamples = append(hotSamples, Sample{Year: 1991, Value: 0.5})
	}
	// 1992 has only 3 joined songs, below a min-n of 20.
	for i := 0; i < 3; i++ {
		hotSamples = append(hotSamples, Sample{Year: 1992, Value: 0.5})
	}
	for _, y := range []int{1991, 1992} {
		for i := 0; i < 5; i++ {
			topSamples = append(topSamples, Sample{Year: y, Value: 0.6})
		}
	}

	cmp := CompareYearly(YearlyMean(hotSamples, 20), YearlyMean(topSamples, 1))
	if len(cmp) != 1 || cmp[0].Year != 1991 {
		t.Fatalf("thin year not filtered: %+v", cmp)
	}
	if cmp[0].Hot.N != 25 {
		t.Errorf("1991 hot n = %d, want 25", cmp[0].Hot.N)
	}
}

func TestDiffSeries(t *testing.T) {
	cmp := []ComparisonRow{
		{Year: 1991, Hot: YearlyStat{Year: 1991, Mean: 0.50}, Top5: YearlyStat{Year: 1991, Mean: 0.62, N: 5}},
		{Year: 1992, Hot: YearlyStat{Year: 1992, Mean: 0.55}, Top5: YearlyStat{Year: 1992, Mean: 0.60, N: 5}},
	}
	diff := DiffSeries(cmp)
	if len(diff) != 2 {
		t.Fatalf("len(diff) = %d, want 2", len(diff))
	}
	if math.Abs(diff[0].Mean-0.12) > 1e-9 {
		t.Errorf("1991 diff = %v, want 0.12", diff[0].Mean)
	}
	if math.Abs(diff[1].Mean-0.05) > 1e-9 {
		t.Errorf("1992 diff = %v, want 0.05", diff[1].Mean)
	}
}

func TestComparisonSeriesTrends(t *testing.T) {
	// Hot side flat, Top-5 side rising: the difference trend must pick up
	// the full Top-5 slope.
	var cmp []ComparisonRow
	for i := 0; i < 10; i++ {
		year := 1991 + i
		cmp = append(cmp, ComparisonRow{
			Year: year,
			Hot:  YearlyStat{Year: year, Mean: 0.5, N: 30},
			Top5: YearlyStat{Year: year, Mean: 0.6 + 0.01*float64(i), N: 5},
		})
	}

	hot := OLSTrend("hot100_6_100_ttr", HotSeries(cmp))
	if math.Abs(hot.Slope) > 1e-9 {
		t.Errorf("hot slope = %v, want 0", hot.Slope)
	}
	diff := OLSTrend("top5_minus_hot_ttr", DiffSeries(cmp))
	if math.Abs(diff.Slope-0.01) > 1e-9 {
		t.Errorf("diff slope = %v, want 0.01", diff.Slope)
	}
	if math.Abs(diff.R2-1.0) > 1e-9 {
		t.Errorf("diff R2 = %v, want 1", diff.R2)
	}
}

func TestWriteComparisonCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bow_vs_top5_yearly_ttr.csv")
	cmp := []ComparisonRow{{
		Year: 1991,
		Hot:  YearlyStat{Year: 1991, Mean: 0.5, SE: 0.01, N: 40},
		Top5: YearlyStat{Year: 1991, Mean: 0.62, SE: 0.03, N: 5},
	}}
	if err := WriteComparisonCSV(path, cmp); err != nil {
		t.Fatalf("WriteComparisonCSV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	got := string(data)
	if !strings.Contains(got, "year,ttr_hot_mean,ttr_hot_se,ttr_hot_n,ttr_top5_mean,ttr_top5_se,ttr_top5_n") {
		t.Errorf("header missing:\n%s", got)
	}
	if !strings.Contains(got, "1991,0.500000,0.010000,40,0.620000,0.030000,5") {
		t.Errorf("row missing:\n%s", got)
	}
}
