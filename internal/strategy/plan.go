package strategy

import (
	"fmt"
	"strings"

	"fxbot/internal/backtest"
	"fxbot/internal/market"
	"fxbot/internal/signal"
)

// PlanInput 是把历史价格变成回测指令所需的全部信息。
type PlanInput struct {
	Kind            Kind
	Signals         signal.Generator
	Instrument      string
	Prices          market.PriceSet
	Balance         float64
	AccountCurrency string
}

// Plan 是交给 BackTester 的指令、成交价和初始余额。
type Plan struct {
	Instructions []signal.Instruction
	Prices       []float64
	Balance      float64
}

func (p Plan) Input(margin float64, conv backtest.Convention, instrument string) backtest.Input {
	return backtest.Input{
		Instrument:   instrument,
		Balance:      p.Balance,
		Margin:       margin,
		Convention:   conv,
		Instructions: p.Instructions,
		Prices:       p.Prices,
	}
}

// BuildPlan 按策略变体生成回测指令：以一笔 BUY 开场，之后 BUY 按 ask 成交，SELL 按 bid 成交。
// follow_market 的开场价取 bid。
func BuildPlan(in PlanInput) (Plan, error) {
	if n := in.Prices.Len(); len(in.Prices.Bid) != n || len(in.Prices.Ask) != n {
		return Plan{}, fmt.Errorf("strategy: price views have different lengths mid=%d bid=%d ask=%d",
			n, len(in.Prices.Bid), len(in.Prices.Ask))
	}
	if in.Prices.Len() == 0 {
		return Plan{}, fmt.Errorf("strategy: no prices to plan on")
	}
	baseAccount := in.AccountCurrency != "" && strings.EqualFold(in.AccountCurrency, BaseCurrency(in.Instrument))
	switch in.Kind {
	case CrossOver:
		return crossOverPlan(in, baseAccount)
	case FollowMarket:
		return followMarketPlan(in, baseAccount)
	default:
		return Plan{}, fmt.Errorf("strategy: unsupported kind %q", in.Kind)
	}
}

func crossOverPlan(in PlanInput, baseAccount bool) (Plan, error) {
	gen := in.Signals
	if gen == (signal.Generator{}) {
		gen = signal.DefaultGenerator()
	}
	mid, bid, ask := in.Prices.Mid, in.Prices.Bid, in.Prices.Ask
	_, _, offset := gen.Averages(mid)
	if len(mid) < gen.Slow {
		return Plan{}, fmt.Errorf("strategy: %d prices are not enough for slow window %d", len(mid), gen.Slow)
	}
	plan := Plan{
		Instructions: []signal.Instruction{signal.Buy},
		Prices:       []float64{ask[offset]},
		Balance:      in.Balance,
	}
	for _, s := range gen.Crossover(mid) {
		plan.Instructions = append(plan.Instructions, s.Instruction)
		plan.Prices = append(plan.Prices, fillPrice(s.Instruction, bid[s.Index], ask[s.Index]))
	}
	// 末尾追加一笔反向指令把仓位平掉
	last := len(mid) - 1
	closing := plan.Instructions[len(plan.Instructions)-1].Opposite()
	plan.Instructions = append(plan.Instructions, closing)
	plan.Prices = append(plan.Prices, fillPrice(closing, bid[last], ask[last]))

	if baseAccount {
		inverted, err := backtest.InvertPrices(plan.Prices)
		if err != nil {
			return Plan{}, err
		}
		plan.Prices = inverted
	}
	return plan, nil
}

func followMarketPlan(in PlanInput, baseAccount bool) (Plan, error) {
	mid, bid, ask := in.Prices.Mid, in.Prices.Bid, in.Prices.Ask
	plan := Plan{
		Instructions: []signal.Instruction{signal.Buy},
		Prices:       []float64{bid[0]},
		Balance:      in.Balance,
	}
	for _, s := range signal.Momentum(mid) {
		plan.Instructions = append(plan.Instructions, s.Instruction)
		plan.Prices = append(plan.Prices, fillPrice(s.Instruction, bid[s.Index], ask[s.Index]))
	}
	if baseAccount {
		// 余额折算成计价货币
		plan.Balance = in.Balance * plan.Prices[len(plan.Prices)-1]
	}
	return plan, nil
}

func fillPrice(inst signal.Instruction, bid, ask float64) float64 {
	if inst == signal.Buy {
		return ask
	}
	return bid
}
