package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"traderDashboard/internal/analytics"
	"traderDashboard/internal/utils"
)

func main() {
	dir := flag.String("dir", "data", "Directory holding trade CSV files")
	prefix := flag.String("prefix", "trades_", "File name prefix of trade CSV files")
	flag.Parse()

	files, err := findTradeFiles(*dir, *prefix)
	if err != nil {
		log.Fatalf("Error finding trade files: %v", err)
	}
	if len(files) == 0 {
		log.Println("No trade files found. Run fetch_history first.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.AlignRight|tabwriter.Debug)
	fmt.Fprintln(w, "File\tTrades\tLots\tWinRate\tAvgWin\tAvgLoss\tR:R\tPF\tExpectancy\tNet\t")

	results := make(map[string]analytics.TradeStatistics, len(files))
	for _, file := range files {
		trades, err := utils.ReadTradesFromCSV(file)
		if err != nil {
			log.Printf("Error reading trades from %s: %v", file, err)
			continue
		}

		m := analytics.ComputeMetrics(trades, nil)
		stats := analytics.AnalyzeTrades(trades)
		results[file] = stats

		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t\n",
			filepath.Base(file),
			m.TradeCount,
			m.TotalLots,
			m.WinRate,
			m.AvgWin,
			m.AvgLoss,
			m.AvgRiskRewardRatio,
			m.ProfitFactor,
			m.Expectancy,
			stats.NetProfit,
		)
	}
	w.Flush()

	fmt.Println("\n## Symbol Breakdown")
	for _, file := range files {
		stats, ok := results[file]
		if !ok {
			continue
		}
		printSymbols(filepath.Base(file), stats)
	}
}

// findTradeFiles lists the CSV files in dir starting with prefix, sorted by name.
func findTradeFiles(dir, prefix string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) && strings.HasSuffix(entry.Name(), ".csv") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func printSymbols(name string, stats analytics.TradeStatistics) {
	fmt.Printf("\nFile: %s (best %.2f, worst %.2f, streaks +%d/-%d)\n",
		name, stats.BestTrade, stats.WorstTrade, stats.MaxConsecutiveWins, stats.MaxConsecutiveLosses)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "Symbol\tTrades\tWinRate\tLots\tNet")
	for _, s := range stats.Symbols {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.2f\n", s.Symbol, s.Trades, s.WinRate, s.TotalLots, s.NetProfit)
	}
	w.Flush()

	monthly := stats.MonthlyReturns()
	if len(monthly) == 0 {
		return
	}
	fmt.Println("Month\tNet")
	for _, m := range monthly {
		fmt.Printf("%s\t%.2f\n", m.Month.Format("2006-01"), m.Return)
	}
}
