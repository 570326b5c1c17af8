// Package export writes and reads the analytics series as CSV.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"pairs_go/internal/domain"

	"github.com/shopspring/decimal"
)

// TimeLayout is ISO-8601 UTC with millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// Header is the fixed column order.
var Header = []string{"Timestamp", "PriceA", "PriceB", "Spread", "ZScore", "HedgeRatio"}

// WriteCSV writes points in series order.
func WriteCSV(w io.Writer, points []domain.AnalyticsPoint) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}

	for _, p := range points {
		row := []string{
			fmtTime(p.Timestamp),
			fmtFloat(p.PriceA),
			fmtFloat(p.PriceB),
			fmtFloat(p.Spread),
			fmtFloat(p.ZScore),
			fmtFloat(p.HedgeRatio),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FileName builds the download name, e.g. "pair_analytics_btcusdt_ethusdt_1700000000000.csv".
func FileName(symbolA, symbolB string, at time.Time) string {
	return fmt.Sprintf("pair_analytics_%s_%s_%d.csv", symbolA, symbolB, at.UnixMilli())
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]domain.AnalyticsPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Header)

	head, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: missing header", domain.ErrNoData)
		}
		return nil, err
	}
	for i, col := range Header {
		if head[i] != col {
			return nil, fmt.Errorf("unexpected column %d: got %q, want %q", i, head[i], col)
		}
	}

	var points []domain.AnalyticsPoint
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		ts, err := time.Parse(TimeLayout, rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: timestamp: %w", line, err)
		}
		var vals [5]float64
		for i := range vals {
			v, err := parseFloat(rec[i+1])
			if err != nil {
				return nil, fmt.Errorf("line %d: %s: %w", line, Header[i+1], err)
			}
			vals[i] = v
		}
		points = append(points, domain.AnalyticsPoint{
			Timestamp:  ts.UnixMilli(),
			PriceA:     vals[0],
			PriceB:     vals[1],
			Spread:     vals[2],
			ZScore:     vals[3],
			HedgeRatio: vals[4],
		})
	}
	return points, nil
}

func fmtTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(TimeLayout)
}

// fmtFloat renders the shortest decimal that parses back to x.
func fmtFloat(x float64) string {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return strconv.FormatFloat(x, 'g', -1, 64)
	}
	return decimal.NewFromFloat(x).String()
}

func parseFloat(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return strconv.ParseFloat(s, 64)
	}
	return d.InexactFloat64(), nil
}
