package market

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Granularity 是蜡烛周期的枚举，取值沿用经纪商的代码。
type Granularity string

const (
	M1  Granularity = "M1"
	H1  Granularity = "H1"
	H6  Granularity = "H6"
	H12 Granularity = "H12"
	D   Granularity = "D"
	W   Granularity = "W"
)

type granularitySpec struct {
	duration       time.Duration
	sourceInterval string
}

var supportedGranularities = map[Granularity]granularitySpec{
	M1:  {duration: time.Minute, sourceInterval: "1m"},
	H1:  {duration: time.Hour, sourceInterval: "1h"},
	H6:  {duration: 6 * time.Hour, sourceInterval: "6h"},
	H12: {duration: 12 * time.Hour, sourceInterval: "12h"},
	D:   {duration: 24 * time.Hour, sourceInterval: "1d"},
	W:   {duration: 7 * 24 * time.Hour, sourceInterval: "1w"},
}

// ParseGranularity 接受经纪商代码（M1/H1/...）。
func ParseGranularity(input string) (Granularity, error) {
	g := Granularity(strings.ToUpper(strings.TrimSpace(input)))
	if _, ok := supportedGranularities[g]; !ok {
		return "", fmt.Errorf("unsupported granularity: %q (supported: %s)", input, strings.Join(SupportedGranularities(), ","))
	}
	return g, nil
}

func SupportedGranularities() []string {
	keys := make([]string, 0, len(supportedGranularities))
	for k := range supportedGranularities {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	return keys
}

func (g Granularity) Valid() bool {
	_, ok := supportedGranularities[g]
	return ok
}

// Duration is the wall-clock length of one candle; zero for unknown values.
func (g Granularity) Duration() time.Duration {
	return supportedGranularities[g].duration
}

// SourceInterval is the kline interval string used by exchanges such as Binance.
func (g Granularity) SourceInterval() string {
	return supportedGranularities[g].sourceInterval
}

func (g Granularity) String() string {
	return string(g)
}
