package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/marketdash/internal/contracts"
	"github.com/wonny/marketdash/internal/metrics"
	"github.com/wonny/marketdash/pkg/logger"
)

// Window fetched for each report (30 days of daily bars)
const (
	Period   = "1mo"
	Interval = "1d"
)

const (
	filePrefix = "report_"
	fileSuffix = ".txt"
	dateLayout = "2006-01-02"
)

var (
	// ErrNoData is returned when the report asset has no bars
	ErrNoData = errors.New("no data for report")

	// ErrNoReport is returned by Latest when the directory holds no report
	ErrNoReport = errors.New("no report found")
)

// Summary is the content of one daily report
type Summary struct {
	Asset          string
	Symbol         string
	GeneratedAt    time.Time
	Open           float64
	Close          float64
	VolatilityPct  float64 // std of daily returns, %
	MaxDrawdownPct float64
}

// Generator writes the daily plain-text report
// ⭐ SSOT: 일일 리포트 생성은 여기서만
type Generator struct {
	fetcher contracts.FrameFetcher
	dir     string
	asset   string
	logger  *logger.Logger
	now     func() time.Time
}

// NewGenerator creates a new report generator
func NewGenerator(fetcher contracts.FrameFetcher, dir, asset string, log *logger.Logger) *Generator {
	if log == nil {
		log = logger.Nop()
	}
	return &Generator{
		fetcher: fetcher,
		dir:     dir,
		asset:   asset,
		logger:  log.WithComponent("report"),
		now:     time.Now,
	}
}

// WithClock overrides the wall clock (tests)
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Dir returns the report directory
func (g *Generator) Dir() string {
	return g.dir
}

// Generate fetches the report window, writes report_YYYY-MM-DD.txt and returns its path
func (g *Generator) Generate(ctx context.Context) (string, *Summary, error) {
	frame, err := g.fetcher.Fetch(ctx, g.asset, Period, Interval)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", g.asset, err)
	}
	if frame.Empty() {
		return "", nil, fmt.Errorf("%w: %s", ErrNoData, g.asset)
	}

	summary := Summarize(frame, g.now())

	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(g.dir, FileName(summary.GeneratedAt))
	if err := os.WriteFile(path, []byte(Format(summary)), 0o644); err != nil {
		return "", nil, fmt.Errorf("write report: %w", err)
	}

	g.logger.WithFields(map[string]interface{}{
		"asset": summary.Asset,
		"path":  path,
		"close": summary.Close,
	}).Info("Daily report written")

	return path, summary, nil
}

// Summarize computes the report figures from a non-empty frame
func Summarize(frame *contracts.Frame, at time.Time) *Summary {
	last, _ := frame.Last()
	closes := frame.CloseValues()

	// 첫 수익률(NaN)은 제외
	returns := make([]float64, 0, len(closes))
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}

	return &Summary{
		Asset:          frame.Asset,
		Symbol:         frame.Symbol,
		GeneratedAt:    at,
		Open:           last.Open,
		Close:          last.Close,
		VolatilityPct:  metrics.Volatility(returns),
		MaxDrawdownPct: metrics.MaxDrawdown(closes),
	}
}

// FileName is report_YYYY-MM-DD.txt for the given day
func FileName(at time.Time) string {
	return filePrefix + at.Format(dateLayout) + fileSuffix
}

// Format renders the summary as the report text
func Format(s *Summary) string {
	name := s.Symbol
	if name == "" {
		name = s.Asset
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- DAILY REPORT: %s ---\n", name)
	fmt.Fprintf(&b, "Date: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))
	b.WriteString("PRICE:\n")
	fmt.Fprintf(&b, "- Open : $%s\n", money(s.Open))
	fmt.Fprintf(&b, "- Close: $%s\n\n", money(s.Close))
	b.WriteString("RISK (30 days):\n")
	fmt.Fprintf(&b, "- Volatility  : %s%%\n", pct(s.VolatilityPct))
	fmt.Fprintf(&b, "- Max Drawdown: %s%%\n", pct(s.MaxDrawdownPct))
	b.WriteString("-------------------------------------\n")
	return b.String()
}

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func pct(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "n/a"
	}
	return decimal.NewFromFloat(v).StringFixed(2)
}

// Latest returns the path and content of the most recently modified report in dir
func Latest(dir string) (string, []byte, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil, ErrNoReport
		}
		return "", nil, fmt.Errorf("read report dir: %w", err)
	}

	type candidate struct {
		name    string
		modTime time.Time
	}
	var found []candidate
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		found = append(found, candidate{name: name, modTime: info.ModTime()})
	}
	if len(found) == 0 {
		return "", nil, ErrNoReport
	}

	// 수정 시각 기준, 동률이면 파일명(날짜) 기준
	sort.Slice(found, func(i, j int) bool {
		if !found[i].modTime.Equal(found[j].modTime) {
			return found[i].modTime.After(found[j].modTime)
		}
		return found[i].name > found[j].name
	})

	path := filepath.Join(dir, found[0].name)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read report: %w", err)
	}
	return path, data, nil
}
