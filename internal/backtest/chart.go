package backtest

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

const (
	colorBackground    = "#111217"
	colorTextPrimary   = "#E6E8EA"
	colorTextSecondary = "#9BA1A6"
	colorBalance       = "#4E9CEB"
	colorPrice         = "#F0B90B"
	chartWidthPx       = 1200
	chartHeightPx      = 480
)

// RenderChart 输出余额与成交价的 HTML 折线图。
func RenderChart(w io.Writer, r Report) error {
	if len(r.Steps) == 0 {
		return fmt.Errorf("report %s has no steps to chart", r.ID)
	}
	xAxis := make([]string, 0, len(r.Steps)+1)
	balance := make([]opts.LineData, 0, len(r.Steps)+1)
	price := make([]opts.LineData, 0, len(r.Steps)+1)
	xAxis = append(xAxis, "start")
	balance = append(balance, opts.LineData{Value: r.InitialBalance})
	price = append(price, opts.LineData{Value: nil})
	for i, s := range r.Steps {
		xAxis = append(xAxis, fmt.Sprintf("%d %s", i, s.Instruction))
		balance = append(balance, opts.LineData{Value: s.Balance})
		price = append(price, opts.LineData{Value: s.Price})
	}

	title := "Backtest"
	if r.Instrument != "" {
		title = fmt.Sprintf("Backtest %s", strings.ToUpper(r.Instrument))
	}
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme:           types.ThemeWesteros,
			Width:           fmt.Sprintf("%dpx", chartWidthPx),
			Height:          fmt.Sprintf("%dpx", chartHeightPx),
			BackgroundColor: colorBackground,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:         title,
			Subtitle:      fmt.Sprintf("%s | margin %g | %.4f -> %.4f", r.Convention, r.Margin, r.InitialBalance, r.Result),
			TitleStyle:    &opts.TextStyle{Color: colorTextPrimary, FontSize: 18},
			SubtitleStyle: &opts.TextStyle{Color: colorTextSecondary},
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), TextStyle: &opts.TextStyle{Color: colorTextPrimary}}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale:     opts.Bool(true),
			AxisLabel: &opts.AxisLabel{Color: colorTextSecondary},
		}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries("Balance", balance, charts.WithLineStyleOpts(opts.LineStyle{Color: colorBalance, Width: 2}))
	line.AddSeries("Price", price, charts.WithLineStyleOpts(opts.LineStyle{Color: colorPrice, Width: 1}))

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.AddCharts(line)
	return page.Render(w)
}
