package oanda

import (
	"context"
	"net/http"

	"github.com/tidwall/gjson"

	"fxbot/internal/gateway/exchange"
)

// Account 拉取账户摘要，返回新的快照；Version 取最后一笔交易 ID。
func (c *Client) Account(ctx context.Context) (exchange.AccountSnapshot, error) {
	data, err := c.do(ctx, "account", http.MethodGet, c.accountPath("summary"), nil, nil)
	if err != nil {
		return exchange.AccountSnapshot{}, err
	}
	acct := gjson.GetBytes(data, "account")
	if !acct.Exists() {
		return exchange.AccountSnapshot{}, &exchange.BrokerError{Op: "account", Reason: "response has no account", Code: http.StatusOK}
	}
	version := gjson.GetBytes(data, "lastTransactionID").Int()
	if version == 0 {
		version = acct.Get("lastTransactionID").Int()
	}
	return exchange.AccountSnapshot{
		ID:                acct.Get("id").String(),
		Currency:          acct.Get("currency").String(),
		Balance:           acct.Get("balance").Float(),
		NAV:               acct.Get("NAV").Float(),
		UnrealizedPL:      acct.Get("unrealizedPL").Float(),
		MarginAvailable:   acct.Get("marginAvailable").Float(),
		OpenTradeCount:    int(acct.Get("openTradeCount").Int()),
		OpenPositionCount: int(acct.Get("openPositionCount").Int()),
		Version:           version,
		FetchedAt:         c.nowFn().UTC(),
	}, nil
}
