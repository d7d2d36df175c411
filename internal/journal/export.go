package journal

import (
	"io"
	"time"

	"github.com/gocarina/gocsv"

	"confluence-coach/internal/models"
)

// csvTrade is the flattened CSV row for one journaled trade.
type csvTrade struct {
	ID              string  `csv:"id"`
	Date            string  `csv:"date"`
	Pair            string  `csv:"pair"`
	Direction       string  `csv:"direction"`
	Pattern         string  `csv:"pattern"`
	Entry           float64 `csv:"entry"`
	StopLoss        float64 `csv:"stop_loss"`
	TakeProfit      float64 `csv:"take_profit"`
	PositionSize    float64 `csv:"position_size"`
	ConfluenceScore float64 `csv:"confluence_score"`
	PlannedRR       float64 `csv:"planned_rr"`
	Status          string  `csv:"status"`
	Outcome         string  `csv:"outcome"`
	ActualExit      float64 `csv:"actual_exit"`
	PnL             float64 `csv:"pnl"`
	AchievedRR      float64 `csv:"achieved_rr"`
}

// ExportCSV writes trades as CSV for offline review in a spreadsheet.
func ExportCSV(w io.Writer, trades []models.Trade) error {
	rows := make([]*csvTrade, 0, len(trades))
	for _, t := range trades {
		row := &csvTrade{
			ID:              t.ID,
			Date:            t.CreatedAt.Format(time.DateOnly),
			Pair:            t.Pair,
			Direction:       string(t.Direction),
			Entry:           t.Entry,
			StopLoss:        t.StopLoss,
			TakeProfit:      t.TakeProfit,
			PositionSize:    t.PositionSize,
			ConfluenceScore: t.ConfluenceScore,
			PlannedRR:       t.RRRatio,
			Status:          string(t.Status),
			Outcome:         string(t.Outcome),
			ActualExit:      t.ActualExit,
			PnL:             t.PnL,
		}
		if t.PatternData != nil {
			row.Pattern = string(t.PatternData.PatternType)
		}
		if rr, ok := achievedRR(t); ok {
			row.AchievedRR = rr
		}
		rows = append(rows, row)
	}
	return gocsv.Marshal(&rows, w)
}
