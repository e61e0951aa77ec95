package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"traderDashboard/internal/domain"
)

var tradeHeader = []string{"ticket", "direction", "volume", "symbol", "open_price", "close_price", "profit", "open_time", "close_time"}

var dealHeader = []string{"id", "type", "entry", "position_id", "symbol", "volume", "price", "profit", "commission", "swap", "time"}

// WriteTradesToCSV writes closed trades to filename, one row per trade.
func WriteTradesToCSV(trades []domain.Trade, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteTrades(file, trades)
}

// WriteTrades writes trades as CSV to w.
func WriteTrades(w io.Writer, trades []domain.Trade) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(tradeHeader); err != nil {
		return err
	}
	for _, t := range trades {
		if err := writer.Write([]string{
			t.Ticket,
			string(t.Direction),
			formatFloat(t.Volume),
			t.Symbol,
			formatFloat(t.OpenPrice),
			formatFloat(t.ClosePrice),
			formatFloat(t.Profit),
			formatTime(t.OpenTime),
			formatTime(t.CloseTime),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadTradesFromCSV reads trades written by WriteTradesToCSV.
func ReadTradesFromCSV(filename string) ([]domain.Trade, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadTrades(file)
}

// ReadTrades parses trade CSV from r. The header row is required.
func ReadTrades(r io.Reader) ([]domain.Trade, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(tradeHeader)

	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, err
	}

	trades := make([]domain.Trade, 0)
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		t, err := parseTrade(rec)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		trades = append(trades, t)
	}
	return trades, nil
}

func parseTrade(rec []string) (domain.Trade, error) {
	t := domain.Trade{
		Ticket:    rec[0],
		Direction: domain.Direction(rec[1]),
		Symbol:    rec[3],
	}
	var err error
	if t.Volume, err = parseFloat("volume", rec[2]); err != nil {
		return t, err
	}
	if t.OpenPrice, err = parseFloat("open_price", rec[4]); err != nil {
		return t, err
	}
	if t.ClosePrice, err = parseFloat("close_price", rec[5]); err != nil {
		return t, err
	}
	if t.Profit, err = parseFloat("profit", rec[6]); err != nil {
		return t, err
	}
	if t.OpenTime, err = parseTime("open_time", rec[7]); err != nil {
		return t, err
	}
	if t.CloseTime, err = parseTime("close_time", rec[8]); err != nil {
		return t, err
	}
	return t, nil
}

// WriteDealsToCSV writes ledger deals to filename, one row per deal.
func WriteDealsToCSV(deals []domain.Deal, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(dealHeader); err != nil {
		return err
	}
	for _, d := range deals {
		if err := writer.Write([]string{
			d.ID,
			string(d.Type),
			string(d.Entry),
			d.PositionID,
			d.Symbol,
			formatFloat(d.Volume),
			formatFloat(d.Price),
			formatFloat(d.Profit),
			formatFloat(d.Commission),
			formatFloat(d.Swap),
			formatTime(d.Time),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Zero times are written as empty cells.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return v, nil
}

func parseTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s %q: %w", field, s, err)
	}
	return t, nil
}
