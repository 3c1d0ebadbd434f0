package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/rebalancer/internal/domain"
	"github.com/mtlprog/rebalancer/internal/registry"
	"github.com/mtlprog/rebalancer/internal/valuation"
)

// StatusRow is one allocation line of one portfolio.
type StatusRow struct {
	Owner         string
	Asset         string
	Symbol        string
	Balance       decimal.Decimal
	Price         decimal.Decimal
	Value         decimal.Decimal
	CurrentBps    uint64
	TargetBps     uint64
	DriftBps      uint64
	Threshold     uint32
	Active        bool
	LastRebalance time.Time
}

// RebalanceRow records one completed rebalance.
type RebalanceRow struct {
	ID             string
	Owner          string
	TradesPlanned  uint32
	TradesExecuted uint32
	TradesFailed   uint32
	Elapsed        time.Duration
	At             time.Time
}

// Report is everything written by one export.
type Report struct {
	At         time.Time
	Status     []StatusRow
	Rebalances []RebalanceRow
}

// SheetWriter writes a report to a spreadsheet destination.
type SheetWriter interface {
	Write(ctx context.Context, report Report) error
}

// StatusSource provides live portfolio status.
type StatusSource interface {
	ActiveOwners(ctx context.Context) ([]string, error)
	Status(ctx context.Context, owner string) (registry.Status, error)
}

// Service builds reports from the registry and delegates writing to a SheetWriter.
type Service struct {
	source StatusSource
	writer SheetWriter
	now    func() time.Time
}

// NewService creates a new export Service.
func NewService(source StatusSource, writer SheetWriter) *Service {
	return &Service{source: source, writer: writer, now: time.Now}
}

// Export writes the status of every active portfolio together with the
// rebalances of the sweep that just ran. Implements worker.AfterSweepHook.
func (s *Service) Export(ctx context.Context, results []domain.RebalanceResult) error {
	report, err := s.Build(ctx, results)
	if err != nil {
		return err
	}
	return s.writer.Write(ctx, report)
}

// Build collects status rows. A portfolio whose status cannot be computed
// is skipped with a warning.
func (s *Service) Build(ctx context.Context, results []domain.RebalanceResult) (Report, error) {
	owners, err := s.source.ActiveOwners(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("listing portfolios: %w", err)
	}

	report := Report{
		At:         s.now().UTC(),
		Rebalances: lo.Map(results, func(r domain.RebalanceResult, _ int) RebalanceRow { return rebalanceRow(r) }),
	}
	for _, owner := range owners {
		status, err := s.source.Status(ctx, owner)
		if err != nil {
			slog.Warn("export: status unavailable", "owner", owner, "error", err)
			continue
		}
		report.Status = append(report.Status, statusRows(status)...)
	}
	return report, nil
}

func statusRows(s registry.Status) []StatusRow {
	return lo.Map(s.Lines, func(line valuation.Line, _ int) StatusRow {
		return StatusRow{
			Owner:         s.Portfolio.Owner,
			Asset:         line.Asset.ID,
			Symbol:        line.Asset.Symbol,
			Balance:       domain.StroopsDecimal(line.Balance),
			Price:         domain.StroopsDecimal(line.Price),
			Value:         domain.StroopsDecimal(line.Value),
			CurrentBps:    line.CurrentBps,
			TargetBps:     line.TargetBps,
			DriftBps:      domain.AbsDiff(line.CurrentBps, line.TargetBps),
			Threshold:     s.Portfolio.DriftThreshold,
			Active:        s.Portfolio.Active,
			LastRebalance: s.Portfolio.LastRebalance,
		}
	})
}

func rebalanceRow(r domain.RebalanceResult) RebalanceRow {
	return RebalanceRow{
		ID:             r.ID.String(),
		Owner:          r.Owner,
		TradesPlanned:  r.TradesPlanned,
		TradesExecuted: r.TradesExecuted,
		TradesFailed:   r.TradesFailed,
		Elapsed:        r.Elapsed,
		At:             r.Timestamp,
	}
}

var statusHeader = []any{
	"Owner", "Asset", "Symbol", "Balance", "Price", "Value",
	"Current %", "Target %", "Drift %", "Threshold %", "Active", "Last Rebalance",
}

var rebalanceHeader = []any{
	"ID", "Owner", "Planned", "Executed", "Failed", "Elapsed (s)", "At",
}

// statusTable builds the STATUS sheet, header row first.
func statusTable(rows []StatusRow) [][]any {
	data := make([][]any, 0, len(rows)+1)
	data = append(data, statusHeader)
	for _, r := range rows {
		data = append(data, []any{
			r.Owner, r.Asset, r.Symbol,
			toFloat(r.Balance), toFloat(r.Price), toFloat(r.Value),
			bpsPercent(r.CurrentBps), bpsPercent(r.TargetBps), bpsPercent(r.DriftBps),
			bpsPercent(uint64(r.Threshold)),
			lo.Ternary(r.Active, 1, 0),
			formatTime(r.LastRebalance),
		})
	}
	return data
}

// rebalanceTable builds REBALANCES data rows without a header.
func rebalanceTable(rows []RebalanceRow) [][]any {
	return lo.Map(rows, func(r RebalanceRow, _ int) []any {
		return []any{
			r.ID, r.Owner,
			int(r.TradesPlanned), int(r.TradesExecuted), int(r.TradesFailed),
			r.Elapsed.Seconds(),
			formatTime(r.At),
		}
	})
}

func bpsPercent(bps uint64) float64 {
	f, _ := decimal.New(int64(bps), -2).Float64()
	return f
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("02.01.2006 15:04:05")
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
