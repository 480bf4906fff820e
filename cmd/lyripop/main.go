// Command lyripop runs the year-end Hot 100 lyrics pipeline: scrape the
// charts, fetch lyrics, fill the Top-5 window from the BiMMuDa dataset and
// manual stubs, join ranks 6-100 against the musiXmatch bag-of-words corpus,
// and compute per-track and yearly trend metrics.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/bimmuda"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/bow"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/chart"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/config"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/database"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/linkage"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/logging"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/lyrics"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/normalize"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/report"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/stubs"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/textmetrics"
	"github.com/SnowZhang1207/LyriPop-Pipeline/internal/version"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() string {
	return `usage: lyripop <command> [flags]

commands:
  charts    scrape year-end Hot 100 charts to CSV
  lyrics    fetch lyrics for chart rows via Genius (cached)
  bimmuda   fill Top-5 lyrics from the BiMMuDa dataset
  bow       join ranks 6-100 against the musiXmatch bag-of-words corpus
  stubs     generate/merge/watch manual lyric stubs
  metrics   compute per-track lexical and sentiment metrics
  trends    aggregate metrics by year and fit OLS trends
  compare   Top-5 vs Hot-100 (6-100) yearly TTR with OLS trends
  run       charts -> lyrics -> metrics in one pass
  version   print version information
`
}

func run(args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage())
		return fmt.Errorf("missing command")
	}

	cmd, rest := args[0], args[1:]
	if cmd == "version" {
		fmt.Printf("lyripop %s (%s)\n", version.Version, version.Commit)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(rest)
	if err != nil {
		return err
	}
	defer app.close()

	switch cmd {
	case "charts":
		return app.cmdCharts(ctx)
	case "lyrics":
		return app.cmdLyrics(ctx)
	case "bimmuda":
		return app.cmdBimmuda(ctx)
	case "bow":
		return app.cmdBow(ctx)
	case "stubs":
		return app.cmdStubs(ctx)
	case "metrics":
		return app.cmdMetrics(ctx)
	case "trends":
		return app.cmdTrends(ctx)
	case "compare":
		return app.cmdCompare(ctx)
	case "run":
		return app.cmdRun(ctx)
	default:
		fmt.Fprint(os.Stderr, usage())
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// app holds the wiring shared by every subcommand. The database opens
// lazily because charts/metrics/trends never touch it.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	logManager *logging.Manager
	flags      *flag.FlagSet
	extraArgs  []string

	db *sql.DB
}

func newApp(args []string) (*app, error) {
	fs := flag.NewFlagSet("lyripop", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("LP_CONFIG_PATH"), "path to config.yaml")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	logManager, logger := logging.NewManager(logging.Config{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		FilePath: cfg.Logging.FilePath,
	})
	slog.SetDefault(logger)

	logger.Info("lyripop starting",
		slog.String("version", version.Version),
		slog.String("commit", version.Commit))

	return &app{
		cfg:        cfg,
		logger:     logger,
		logManager: logManager,
		flags:      fs,
		extraArgs:  fs.Args(),
	}, nil
}

func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("closing database", slog.String("error", err.Error()))
		}
	}
	a.logManager.Close() //nolint:errcheck
}

func (a *app) store() (*database.Store, error) {
	if a.db == nil {
		db, err := database.Open(a.cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		if err := database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		a.db = db
		a.logger.Info("database ready", slog.String("path", a.cfg.Database.Path))
	}
	return database.NewStore(a.db), nil
}

func (a *app) norm() *normalize.Normalizer {
	return normalize.New(normalize.DefaultAliases())
}

func (a *app) chartsCSV() string {
	return filepath.Join(a.cfg.Paths.OutDir,
		fmt.Sprintf("yearend_hot100_%d_%d.csv", a.cfg.Years.ChartStart, a.cfg.Years.ChartEnd))
}

func (a *app) lyricsCSV() string {
	return filepath.Join(a.cfg.Paths.OutDir,
		fmt.Sprintf("yearend_hot100_lyrics_%d_%d.csv", a.cfg.Years.ChartStart, a.cfg.Years.ChartEnd))
}

func (a *app) metricsCSV() string {
	return filepath.Join(a.cfg.Paths.OutDir, "track_metrics.csv")
}

func (a *app) bowCSV() string {
	return filepath.Join(a.cfg.Paths.OutDir,
		fmt.Sprintf("hot100_bow_%d_%d.csv", a.cfg.Years.BowStart, a.cfg.Years.BowEnd))
}

// saveAudit persists the decision trail both to the database and to the
// audit CSV next to the stage's output.
func (a *app) saveAudit(ctx context.Context, command, params, csvName string, decisions []linkage.Decision) error {
	st, err := a.store()
	if err != nil {
		return err
	}
	runID, err := st.CreateRun(ctx, command, params)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	if err := st.SaveDecisions(ctx, runID, decisions); err != nil {
		return fmt.Errorf("saving decisions: %w", err)
	}
	path := filepath.Join(a.cfg.Paths.OutDir, csvName)
	if err := report.WriteDecisionsCSV(path, decisions); err != nil {
		return fmt.Errorf("writing audit csv: %w", err)
	}
	a.logger.Info("audit saved", slog.String("run_id", runID), slog.String("csv", path))
	return nil
}

func (a *app) cmdCharts(ctx context.Context) error {
	fetcher := chart.NewFetcher(a.logger,
		chart.NewWikipediaClient(a.logger),
		chart.NewBillboardClient(a.logger))

	entries, err := fetcher.FetchRange(ctx, a.cfg.Years.ChartStart, a.cfg.Years.ChartEnd)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no chart rows fetched")
	}
	if err := chart.WriteCSV(a.chartsCSV(), entries); err != nil {
		return fmt.Errorf("writing charts csv: %w", err)
	}
	a.logger.Info("charts written", slog.String("path", a.chartsCSV()), slog.Int("rows", len(entries)))
	return nil
}

func (a *app) cmdLyrics(ctx context.Context) error {
	entries, err := chart.ReadCSV(a.chartsCSV())
	if err != nil {
		return fmt.Errorf("reading charts csv (run `lyripop charts` first): %w", err)
	}

	st, err := a.store()
	if err != nil {
		return err
	}
	client := lyrics.NewGeniusClient(a.cfg.Genius.Token, a.cfg.Genius.RequestsPerSecond, a.logger)
	svc := lyrics.NewService(client, st, a.logger)

	rows, err := svc.FetchForChart(ctx, entries)
	if err != nil {
		return err
	}
	if err := lyrics.WriteRowsCSV(a.lyricsCSV(), rows); err != nil {
		return fmt.Errorf("writing lyrics csv: %w", err)
	}
	a.logger.Info("lyrics written", slog.String("path", a.lyricsCSV()), slog.Int("rows", len(rows)))
	return nil
}

func (a *app) cmdBimmuda(ctx context.Context) error {
	rows, err := lyrics.ReadRowsCSV(a.lyricsCSV())
	if err != nil {
		return fmt.Errorf("reading lyrics csv (run `lyripop lyrics` first): %w", err)
	}

	// Only Top-5 rows inside the dataset window go through the fill; the
	// rest pass through untouched.
	var queries []chart.Entry
	queryIdx := make(map[int]int) // query position -> rows index
	for i, r := range rows {
		if r.Rank <= 5 && r.Year >= a.cfg.Years.Top5Start && r.Year <= a.cfg.Years.Top5End && r.Lyrics == "" {
			queryIdx[len(queries)] = i
			queries = append(queries, r.Entry)
		}
	}
	if len(queries) == 0 {
		a.logger.Info("no empty Top-5 rows to fill")
		return nil
	}

	filler := bimmuda.NewFiller(a.norm(), linkage.Config{
		Threshold:    a.cfg.Matching.BimmudaThreshold,
		CandidateCap: a.cfg.Matching.CandidateCap,
	}, a.logger)
	res, err := filler.Fill(queries, a.cfg.Paths.BimmudaRoot)
	if err != nil {
		return err
	}
	for qi, row := range res.Rows {
		if row.Lyrics != "" {
			rows[queryIdx[qi]].Lyrics = row.Lyrics
		}
	}

	// Hand-curated lyrics cover the years past the dataset.
	manual, err := bimmuda.LoadManual(a.cfg.Paths.ManualJSON)
	if err != nil {
		return err
	}
	manualFilled := bimmuda.ApplyManual(rows, manual)
	if err := bimmuda.WriteManualTemplate(a.cfg.Paths.ManualJSON, topFive(rows), manual); err != nil {
		return fmt.Errorf("writing manual template: %w", err)
	}

	if err := lyrics.WriteRowsCSV(a.lyricsCSV(), rows); err != nil {
		return fmt.Errorf("writing lyrics csv: %w", err)
	}
	a.logger.Info("bimmuda fill done",
		slog.Int("queries", len(queries)),
		slog.Int("manual_filled", manualFilled))

	params := fmt.Sprintf("threshold=%d", a.cfg.Matching.BimmudaThreshold)
	return a.saveAudit(ctx, "bimmuda", params, "bimmuda_fill_report.csv", res.Decisions)
}

func topFive(rows []lyrics.Row) []lyrics.Row {
	var out []lyrics.Row
	for _, r := range rows {
		if r.Rank <= 5 {
			out = append(out, r)
		}
	}
	return out
}

func (a *app) cmdBow(ctx context.Context) error {
	entries, err := chart.ReadCSV(a.chartsCSV())
	if err != nil {
		return fmt.Errorf("reading charts csv (run `lyripop charts` first): %w", err)
	}
	var inRange []chart.Entry
	for _, e := range entries {
		if e.Rank >= 6 && e.Rank <= 100 && e.Year >= a.cfg.Years.BowStart && e.Year <= a.cfg.Years.BowEnd {
			inRange = append(inRange, e)
		}
	}
	if len(inRange) == 0 {
		return fmt.Errorf("no chart rows in the bow year/rank window")
	}

	matches, err := bow.LoadMatches(a.cfg.Paths.MXMMatches)
	if err != nil {
		return err
	}
	ds, err := bow.LoadDataset(a.cfg.Paths.MXMDataset, a.cfg.Paths.MXMDataset2)
	if err != nil {
		return err
	}
	a.logger.Info("bow corpus loaded",
		slog.Int("matches", len(matches)),
		slog.Int("tracks", len(ds.Tracks)))

	joiner := bow.NewJoiner(a.norm(), linkage.Config{
		Threshold:    a.cfg.Matching.BowThreshold,
		CandidateCap: a.cfg.Matching.CandidateCap,
	}, a.logger)
	res, err := joiner.Join(inRange, matches, ds)
	if err != nil {
		return err
	}

	outPath := a.bowCSV()
	if err := bow.WriteCSV(outPath, res.Rows); err != nil {
		return fmt.Errorf("writing bow csv: %w", err)
	}
	a.logger.Info("bow join written", slog.String("path", outPath), slog.Int("rows", len(res.Rows)))

	params := fmt.Sprintf("threshold=%d", a.cfg.Matching.BowThreshold)
	return a.saveAudit(ctx, "bow", params, "bow_join_report.csv", res.Decisions)
}

func (a *app) cmdStubs(ctx context.Context) error {
	fs := flag.NewFlagSet("stubs", flag.ContinueOnError)
	generate := fs.Bool("generate", false, "create empty stub files for missing Top-5 rows")
	watch := fs.Bool("watch", false, "keep merging as stub files change")
	if err := fs.Parse(a.extraArgs); err != nil {
		return err
	}

	rows, err := lyrics.ReadRowsCSV(a.lyricsCSV())
	if err != nil {
		return fmt.Errorf("reading lyrics csv (run `lyripop lyrics` first): %w", err)
	}

	if *generate {
		created, err := stubs.Generate(a.cfg.Paths.StubsDir, rows, a.cfg.Years.Top5Start, a.cfg.Years.Top5End)
		if err != nil {
			return err
		}
		a.logger.Info("stubs generated", slog.Int("created", created), slog.String("dir", a.cfg.Paths.StubsDir))
		return nil
	}

	merge := func(context.Context) error {
		rows, err := lyrics.ReadRowsCSV(a.lyricsCSV())
		if err != nil {
			return err
		}
		merger := stubs.NewMerger(a.norm(), a.cfg.Matching.StubsThreshold,
			a.cfg.Years.Top5Start, a.cfg.Years.Top5End, a.logger)
		filled, err := merger.Merge(a.cfg.Paths.StubsDir, rows)
		if err != nil {
			return err
		}
		if filled == 0 {
			a.logger.Info("no stubs merged")
			return nil
		}
		if err := lyrics.WriteRowsCSV(a.lyricsCSV(), rows); err != nil {
			return fmt.Errorf("writing lyrics csv: %w", err)
		}
		a.logger.Info("stubs merged", slog.Int("filled", filled))
		return nil
	}

	if *watch {
		if err := merge(ctx); err != nil {
			return err
		}
		return stubs.NewWatcher(merge, a.logger).Start(ctx, a.cfg.Paths.StubsDir)
	}
	return merge(ctx)
}

func (a *app) cmdMetrics(_ context.Context) error {
	rows, err := lyrics.ReadRowsCSV(a.lyricsCSV())
	if err != nil {
		return fmt.Errorf("reading lyrics csv (run `lyripop lyrics` first): %w", err)
	}

	analyzer := textmetrics.NewAnalyzer()
	out := make([]report.TrackRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, report.TrackRow{
			Entry:   r.Entry,
			Metrics: analyzer.Compute(r.Lyrics),
			IsTop5:  r.Rank <= 5,
		})
	}
	if err := report.WriteTrackMetricsCSV(a.metricsCSV(), out); err != nil {
		return fmt.Errorf("writing metrics csv: %w", err)
	}
	a.logger.Info("metrics written", slog.String("path", a.metricsCSV()), slog.Int("rows", len(out)))
	return nil
}

func (a *app) cmdTrends(_ context.Context) error {
	rows, err := report.ReadTrackMetricsCSV(a.metricsCSV())
	if err != nil {
		return fmt.Errorf("reading metrics csv (run `lyripop metrics` first): %w", err)
	}

	metrics := []struct {
		name string
		get  func(report.TrackRow) float64
	}{
		{"ttr", func(r report.TrackRow) float64 { return r.TTR }},
		{"repetition", func(r report.TrackRow) float64 { return r.Repetition }},
		{"compressibility", func(r report.TrackRow) float64 { return r.Compressibility }},
		{"entropy", func(r report.TrackRow) float64 { return r.Entropy }},
		{"hhi", func(r report.TrackRow) float64 { return r.HHI }},
		{"max_p", func(r report.TrackRow) float64 { return r.MaxP }},
		{"sentiment", func(r report.TrackRow) float64 { return r.Sentiment }},
		{"fk_grade", func(r report.TrackRow) float64 { return r.FKGrade }},
	}

	var trends []report.Trend
	for _, m := range metrics {
		name, get := m.name, m.get
		var samples []report.Sample
		for _, r := range rows {
			if r.Tokens == 0 {
				continue // rows with no lyrics carry no signal
			}
			samples = append(samples, report.Sample{Year: r.Year, Value: get(r)})
		}
		stats := report.YearlyMean(samples, 1)
		yearlyPath := filepath.Join(a.cfg.Paths.OutDir, fmt.Sprintf("%s_yearly.csv", name))
		if err := report.WriteYearlyCSV(yearlyPath, stats); err != nil {
			return fmt.Errorf("writing %s yearly csv: %w", name, err)
		}
		trends = append(trends, report.OLSTrend(name, stats))
	}

	trendsPath := filepath.Join(a.cfg.Paths.OutDir, "trends_ols.csv")
	if err := report.WriteTrendsCSV(trendsPath, trends); err != nil {
		return fmt.Errorf("writing trends csv: %w", err)
	}
	a.logger.Info("trends written", slog.String("path", trendsPath), slog.Int("metrics", len(trends)))
	return nil
}

// cmdCompare runs the headline analysis: yearly mean TTR of the Hot-100
// ranks 6-100 (bag-of-words side, years kept only when they carry at least
// bow_min_n_per_year joined songs) against the Top-5 lyrics side, with OLS
// trends for both series and for their per-year difference.
func (a *app) cmdCompare(_ context.Context) error {
	hot, err := bow.ReadCSV(a.bowCSV())
	if err != nil {
		return fmt.Errorf("reading bow csv (run `lyripop bow` first): %w", err)
	}
	top, err := report.ReadTrackMetricsCSV(a.metricsCSV())
	if err != nil {
		return fmt.Errorf("reading metrics csv (run `lyripop metrics` first): %w", err)
	}

	start, end := a.cfg.Years.BowStart, a.cfg.Years.BowEnd
	var hotSamples, topSamples []report.Sample
	for _, r := range hot {
		if r.Year >= start && r.Year <= end {
			hotSamples = append(hotSamples, report.Sample{Year: r.Year, Value: r.TTR})
		}
	}
	for _, r := range top {
		if r.Rank <= 5 && r.Year >= start && r.Year <= end && r.Tokens > 0 {
			topSamples = append(topSamples, report.Sample{Year: r.Year, Value: r.TTR})
		}
	}

	hotYearly := report.YearlyMean(hotSamples, a.cfg.Years.BowMinN)
	topYearly := report.YearlyMean(topSamples, 1)
	cmp := report.CompareYearly(hotYearly, topYearly)
	if len(cmp) == 0 {
		return fmt.Errorf("no overlapping years between the bow and top-5 series")
	}

	prefix := fmt.Sprintf("bow_vs_top5_%d_%d", start, end)
	yearlyPath := filepath.Join(a.cfg.Paths.OutDir, prefix+"_yearly_ttr.csv")
	if err := report.WriteComparisonCSV(yearlyPath, cmp); err != nil {
		return fmt.Errorf("writing comparison csv: %w", err)
	}

	trends := []report.Trend{
		report.OLSTrend("hot100_6_100_ttr", report.HotSeries(cmp)),
		report.OLSTrend("top5_ttr", report.Top5Series(cmp)),
		report.OLSTrend("top5_minus_hot_ttr", report.DiffSeries(cmp)),
	}
	olsPath := filepath.Join(a.cfg.Paths.OutDir, prefix+"_ols.csv")
	if err := report.WriteTrendsCSV(olsPath, trends); err != nil {
		return fmt.Errorf("writing comparison ols csv: %w", err)
	}

	a.logger.Info("comparison written",
		slog.String("yearly", yearlyPath),
		slog.String("ols", olsPath),
		slog.Int("years", len(cmp)),
		slog.Int("min_n_per_year", a.cfg.Years.BowMinN))
	return nil
}

func (a *app) cmdRun(ctx context.Context) error {
	if err := a.cmdCharts(ctx); err != nil {
		return fmt.Errorf("charts stage: %w", err)
	}
	if err := a.cmdLyrics(ctx); err != nil {
		return fmt.Errorf("lyrics stage: %w", err)
	}
	if err := a.cmdMetrics(ctx); err != nil {
		return fmt.Errorf("metrics stage: %w", err)
	}
	return nil
}
