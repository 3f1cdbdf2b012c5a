package backtest

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"gopkg.in/yaml.v3"

	"fxbot/internal/signal"
)

// Step 是回测中的一步：执行后的余额、成交价与指令。
type Step struct {
	Balance     float64            `json:"balance" yaml:"balance"`
	Price       float64            `json:"price" yaml:"price"`
	Instruction signal.Instruction `json:"instruction" yaml:"instruction"`
}

// Report 汇总一次回测结果。
type Report struct {
	ID             string     `json:"id" yaml:"id"`
	Instrument     string     `json:"instrument,omitempty" yaml:"instrument,omitempty"`
	Convention     Convention `json:"convention" yaml:"convention"`
	Margin         float64    `json:"margin" yaml:"margin"`
	InitialBalance float64    `json:"initial_balance" yaml:"initial_balance"`
	Steps          []Step     `json:"steps" yaml:"steps"`
	Result         float64    `json:"result" yaml:"result"`
	StartedAt      time.Time  `json:"started_at" yaml:"started_at"`
	FinishedAt     time.Time  `json:"finished_at" yaml:"finished_at"`
}

func (r Report) Profit() float64 {
	return r.Result - r.InitialBalance
}

// Favorable 为 true 时才允许进入实盘。
func (r Report) Favorable() bool {
	return r.Result > r.InitialBalance
}

func (r Report) clone() Report {
	cp := r
	cp.Steps = append([]Step(nil), r.Steps...)
	return cp
}

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(input string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(input))) {
	case "", FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported report format: %q", input)
	}
}

// Encode 按指定格式输出报告。
func Encode(w io.Writer, r Report, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	default:
		return writeText(w, r)
	}
}

func writeText(w io.Writer, r Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "backtest\t%s\n", r.ID)
	if r.Instrument != "" {
		fmt.Fprintf(tw, "instrument\t%s\n", r.Instrument)
	}
	fmt.Fprintf(tw, "convention\t%s\n", r.Convention)
	fmt.Fprintf(tw, "margin\t%g\n", r.Margin)
	fmt.Fprintf(tw, "initial balance\t%.6f\n", r.InitialBalance)
	fmt.Fprintln(tw, "#\tinstruction\tprice\tbalance")
	for i, s := range r.Steps {
		fmt.Fprintf(tw, "%d\t%s\t%.6f\t%.6f\n", i, s.Instruction, s.Price, s.Balance)
	}
	fmt.Fprintf(tw, "result\t%.6f\n", r.Result)
	fmt.Fprintf(tw, "profit\t%.6f\n", r.Profit())
	return tw.Flush()
}
