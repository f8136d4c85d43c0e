package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"

	"github.com/mfaber/tradewatch/internal/config"
	"github.com/mfaber/tradewatch/internal/model"
	"github.com/mfaber/tradewatch/internal/storage"
	"github.com/mfaber/tradewatch/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/pipeline.local.yaml", "path to config file")
	dateStr := flag.String("date", "", "trading date YYYY-MM-DD (default: latest date with anomalies)")
	minZ := flag.Float64("min-z", 0, "only show anomalies scoring at least this Z")
	limit := flag.Int("limit", 20, "max rows per table")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Tables go to stdout; keep logs out of the way on stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file, using process environment")
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	store, err := storage.Open(ctx, cfg.Database.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	stats, err := store.Stats(ctx)
	if err != nil {
		logger.Error("failed to load stats", "error", err)
		os.Exit(1)
	}

	fmt.Println("Pipeline status")
	fmt.Printf("  tickers tracked:  %d\n", stats.TotalTickersTracked)
	fmt.Printf("  total anomalies:  %d\n", stats.TotalAnomalies)
	if stats.LatestDate.IsZero() {
		fmt.Println("  latest date:      none")
		fmt.Println("\nNo anomalies recorded yet.")
		return
	}
	fmt.Printf("  latest date:      %s (%d anomalies)\n", model.FormatDay(stats.LatestDate), stats.AnomaliesToday)

	date := stats.LatestDate
	if *dateStr != "" {
		date, err = model.ParseDay(*dateStr)
		if err != nil {
			logger.Error("invalid -date", "value", *dateStr, "error", err)
			os.Exit(1)
		}
	}

	anomalies, err := store.AnomaliesByDate(ctx, date)
	if err != nil {
		logger.Error("failed to load anomalies", "date", model.FormatDay(date), "error", err)
		os.Exit(1)
	}
	anomalies = filterMinZ(anomalies, *minZ)
	if len(anomalies) > *limit && *limit > 0 {
		anomalies = anomalies[:*limit]
	}

	fmt.Printf("\nAnomalies on %s\n", model.FormatDay(date))
	printTable(anomalies)

	top, err := store.TopAnomalies(ctx, *limit)
	if err != nil {
		logger.Error("failed to load top anomalies", "error", err)
		os.Exit(1)
	}
	top = filterMinZ(top, *minZ)

	fmt.Println("\nAll-time top anomalies")
	printTable(top)
}

func filterMinZ(anomalies []model.AnomalyRecord, minZ float64) []model.AnomalyRecord {
	if minZ <= 0 {
		return anomalies
	}
	kept := anomalies[:0]
	for _, a := range anomalies {
		if a.ZScore >= minZ {
			kept = append(kept, a)
		}
	}
	return kept
}

func printTable(anomalies []model.AnomalyRecord) {
	if len(anomalies) == 0 {
		fmt.Println("  (none)")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "  TICKER\tDATE\tTRADES\tAVG\tSTD\tZ\tCLOSE\tDIFF%\tVOLUME")
	for _, a := range anomalies {
		diff := "-"
		if a.PriceDiff != nil {
			diff = fmt.Sprintf("%+.2f", *a.PriceDiff)
		}
		fmt.Fprintf(w, "  %s\t%s\t%d\t%.1f\t%.1f\t%.2f\t%.2f\t%s\t%d\n",
			a.Ticker,
			model.FormatDay(a.Date),
			a.TradeCount,
			a.AvgTrades,
			a.StdTrades,
			a.ZScore,
			a.ClosePrice,
			diff,
			a.Volume,
		)
	}
	w.Flush()
}
