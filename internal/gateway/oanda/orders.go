package oanda

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tidwall/gjson"

	"fxbot/internal/gateway/exchange"
)

type orderBody struct {
	Order marketOrder `json:"order"`
}

type marketOrder struct {
	Type             string            `json:"type"`
	Instrument       string            `json:"instrument"`
	Units            string            `json:"units"`
	TimeInForce      string            `json:"timeInForce"`
	PositionFill     string            `json:"positionFill"`
	ClientExtensions *clientExtensions `json:"clientExtensions,omitempty"`
}

type clientExtensions struct {
	Tag string `json:"tag,omitempty"`
}

// CreateOrder 提交市价单（FOK）。被经纪商撤单时返回 BrokerError。
func (c *Client) CreateOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderConfirmation, error) {
	if req.Units == 0 {
		return exchange.OrderConfirmation{}, &exchange.BrokerError{Op: "create_order", Reason: "units must be non-zero"}
	}
	body := orderBody{Order: marketOrder{
		Type:         "MARKET",
		Instrument:   req.Instrument,
		Units:        strconv.FormatInt(req.Units, 10),
		TimeInForce:  "FOK",
		PositionFill: "DEFAULT",
	}}
	if req.ClientTag != "" {
		body.Order.ClientExtensions = &clientExtensions{Tag: req.ClientTag}
	}
	data, err := c.do(ctx, "create_order", http.MethodPost, c.accountPath("orders"), nil, body)
	if err != nil {
		return exchange.OrderConfirmation{}, err
	}
	res := gjson.ParseBytes(data)
	if cancel := res.Get("orderCancelTransaction"); cancel.Exists() {
		return exchange.OrderConfirmation{}, &exchange.BrokerError{
			Op:     "create_order",
			Reason: fmt.Sprintf("order cancelled: %s", cancel.Get("reason").String()),
			Code:   http.StatusCreated,
		}
	}
	fill := res.Get("orderFillTransaction")
	return exchange.OrderConfirmation{
		OrderID:       res.Get("orderCreateTransaction.id").String(),
		TradeID:       fill.Get("tradeOpened.tradeID").String(),
		Instrument:    req.Instrument,
		Units:         req.Units,
		Price:         fill.Get("price").Float(),
		TransactionID: res.Get("lastTransactionID").String(),
		Raw:           data,
	}, nil
}

func (c *Client) OpenPositions(ctx context.Context) ([]exchange.Position, error) {
	data, err := c.do(ctx, "open_positions", http.MethodGet, c.accountPath("openPositions"), nil, nil)
	if err != nil {
		return nil, err
	}
	rows := gjson.GetBytes(data, "positions").Array()
	out := make([]exchange.Position, 0, len(rows))
	for _, row := range rows {
		out = append(out, exchange.Position{
			Instrument:   row.Get("instrument").String(),
			LongUnits:    row.Get("long.units").Float(),
			ShortUnits:   row.Get("short.units").Float(),
			UnrealizedPL: row.Get("unrealizedPL").Float(),
		})
	}
	return out, nil
}

// ClosePosition 对有持仓的方向发送 ALL；两边都为空时也会请求 long 方向，由经纪商给出错误。
func (c *Client) ClosePosition(ctx context.Context, pos exchange.Position) (exchange.Confirmation, error) {
	body := map[string]string{}
	if pos.HasLong() {
		body["longUnits"] = "ALL"
	}
	if pos.HasShort() {
		body["shortUnits"] = "ALL"
	}
	if len(body) == 0 {
		body["longUnits"] = "ALL"
	}
	path := c.accountPath("positions", url.PathEscape(pos.Instrument), "close")
	data, err := c.do(ctx, "close_position", http.MethodPut, path, nil, body)
	if err != nil {
		return exchange.Confirmation{}, err
	}
	res := gjson.ParseBytes(data)
	pl := res.Get("longOrderFillTransaction.pl").Float() + res.Get("shortOrderFillTransaction.pl").Float()
	return exchange.Confirmation{
		TransactionIDs: stringArray(res.Get("relatedTransactionIDs")),
		RealizedPL:     pl,
		Raw:            data,
	}, nil
}

func (c *Client) OpenTrades(ctx context.Context) ([]exchange.Trade, error) {
	data, err := c.do(ctx, "open_trades", http.MethodGet, c.accountPath("openTrades"), nil, nil)
	if err != nil {
		return nil, err
	}
	rows := gjson.GetBytes(data, "trades").Array()
	out := make([]exchange.Trade, 0, len(rows))
	for _, row := range rows {
		out = append(out, exchange.Trade{
			ID:           row.Get("id").String(),
			Instrument:   row.Get("instrument").String(),
			CurrentUnits: row.Get("currentUnits").Float(),
			Price:        row.Get("price").Float(),
			UnrealizedPL: row.Get("unrealizedPL").Float(),
			OpenTime:     parseUnixTime(row.Get("openTime").String()),
		})
	}
	return out, nil
}

func (c *Client) CloseTrade(ctx context.Context, tradeID string) (exchange.Confirmation, error) {
	if tradeID == "" {
		return exchange.Confirmation{}, &exchange.BrokerError{Op: "close_trade", Reason: "trade id is required"}
	}
	path := c.accountPath("trades", url.PathEscape(tradeID), "close")
	data, err := c.do(ctx, "close_trade", http.MethodPut, path, nil, nil)
	if err != nil {
		return exchange.Confirmation{}, err
	}
	res := gjson.ParseBytes(data)
	return exchange.Confirmation{
		TransactionIDs: stringArray(res.Get("relatedTransactionIDs")),
		RealizedPL:     res.Get("orderFillTransaction.pl").Float(),
		Raw:            data,
	}, nil
}

func stringArray(v gjson.Result) []string {
	items := v.Array()
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.String())
	}
	return out
}
