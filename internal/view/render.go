// Package view applies the dashboard rendering policy: it recomputes the
// whole visible page from the market catalog, the user's input and an
// explicit per-session state value.
package view

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cotlab/cot-analytics/internal/market"
	"github.com/cotlab/cot-analytics/internal/positions"
)

// ErrRenderFailed wraps unexpected failures recovered during rendering.
var ErrRenderFailed = errors.New("view: unexpected render failure")

// MetricTitle labels the dominant-trader card.
const MetricTitle = "Active Trader"

// Session is the state one user session carries between renders.
// The zero value is a fresh session.
type Session struct {
	InitialLoadDone bool   `json:"initial_load_done"`
	HasPrevView     bool   `json:"has_prev_view"`
	PrevAbsolute    bool   `json:"prev_absolute"`
	SelectedMarket  string `json:"selected_market"`
}

// Input is the user's current selection.
type Input struct {
	Market       string `json:"market"`
	AbsoluteView bool   `json:"absolute"`
}

// Effects are one-shot instructions for the client.
type Effects struct {
	ScrollToMarket bool `json:"scroll_to_market"`
}

// MetricCard is the read-only metric display.
type MetricCard struct {
	Title   string           `json:"title"`
	Content string           `json:"content"`
	Metric  positions.Metric `json:"metric"`
}

// TableRow is one displayed positions row with formatted cells.
type TableRow struct {
	Trader    string    `json:"trader"`
	Long      float64   `json:"long"`
	Short     float64   `json:"short"`
	Net       float64   `json:"net"`
	LongText  string    `json:"long_text"`
	ShortText string    `json:"short_text"`
	NetText   string    `json:"net_text"`
	NetStyle  CellStyle `json:"net_style"`
}

// Chart pairs the tidy dataset with the preset for the view mode.
type Chart struct {
	Data []positions.ChartRecord `json:"data"`
	Spec ChartSpec               `json:"spec"`
}

// Page is everything the presentation layer draws. When Error is set no
// other field is populated.
type Page struct {
	Markets      []string        `json:"markets,omitempty"`
	Selected     string          `json:"selected,omitempty"`
	AbsoluteView bool            `json:"absolute"`
	Metric       *MetricCard     `json:"metric,omitempty"`
	Positions    *positions.View `json:"positions,omitempty"`
	Rows         []TableRow      `json:"rows,omitempty"`
	Chart        *Chart          `json:"chart,omitempty"`
	Caption      string          `json:"caption,omitempty"`
	Effects      Effects         `json:"effects"`
	Error        string          `json:"error,omitempty"`
}

// Render recomputes the page for one interaction. It returns the page, the
// session to carry into the next render and the error behind an error page.
//
// Data errors block the whole view: the page carries only the message and
// the session is returned unchanged.
func Render(cat *market.Catalog, loadErr error, s Session, in Input) (page Page, next Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("render panicked", "panic", r)
			err = fmt.Errorf("%w: %v", ErrRenderFailed, r)
			page, next = errorPage(err), s
		}
	}()

	if loadErr == nil && cat == nil {
		loadErr = &market.DataFormatError{Reason: "market collection not loaded"}
	}
	if loadErr != nil {
		return errorPage(loadErr), s, loadErr
	}

	rec := cat.Lookup(in.Market)
	table, err := positions.Transform(rec)
	if err != nil {
		return errorPage(err), s, err
	}
	metric, err := positions.DominantTrader(rec)
	if err != nil {
		return errorPage(err), s, err
	}
	displayed := positions.Normalize(table, in.AbsoluteView)

	next = s
	next.SelectedMarket = rec.DisplayName
	var fx Effects
	if !s.InitialLoadDone {
		fx.ScrollToMarket = true
		next.InitialLoadDone = true
	}
	if s.HasPrevView && s.PrevAbsolute != in.AbsoluteView {
		fx.ScrollToMarket = true
	}
	next.HasPrevView = true
	next.PrevAbsolute = in.AbsoluteView

	page = Page{
		Markets:      cat.Names(),
		Selected:     rec.DisplayName,
		AbsoluteView: in.AbsoluteView,
		Metric: &MetricCard{
			Title:   MetricTitle,
			Content: metric.String(),
			Metric:  metric,
		},
		Positions: &displayed,
		Rows:      tableRows(displayed, in.AbsoluteView),
		Chart: &Chart{
			Data: positions.ChartData(table),
			Spec: Preset(in.AbsoluteView),
		},
		Caption: Caption(in.AbsoluteView),
		Effects: fx,
	}
	return page, next, nil
}

func tableRows(v positions.View, absoluteView bool) []TableRow {
	styles := NetGradient(v.Net())
	rows := make([]TableRow, 0, len(positions.Categories))
	for i, c := range positions.Categories {
		r := v[c]
		rows = append(rows, TableRow{
			Trader:    c.String(),
			Long:      r.Long,
			Short:     r.Short,
			Net:       r.Net,
			LongText:  FormatValue(r.Long, absoluteView),
			ShortText: FormatValue(r.Short, absoluteView),
			NetText:   FormatValue(r.Net, absoluteView),
			NetStyle:  styles[i],
		})
	}
	return rows
}

func errorPage(err error) Page {
	if errors.Is(err, market.ErrDataFormat) {
		return Page{Error: "Error loading data: " + err.Error()}
	}
	return Page{Error: "An unexpected error occurred. Please try again."}
}
