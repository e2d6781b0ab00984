package paradex

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"xconnect/config"
	"xconnect/contracts"
	"xconnect/kernel"
	"xconnect/telemetry"
	"xconnect/types"
	"xconnect/xerrors"
)

const (
	venueName       = "paradex"
	defaultRESTBase = "https://api.prod.paradex.trade"
	testnetRESTBase = "https://api.testnet.paradex.trade"
	defaultWSBase   = "wss://ws.api.prod.paradex.trade/v1"
	testnetWSBase   = "wss://ws.api.testnet.paradex.trade/v1"
)

// Connector implements contracts.Connector for Paradex, which
// authenticates with a bearer JWT (see kernel.JWTSigner) rather than
// per-request HMAC/Ed25519 signatures, and whose REST responses
// sometimes arrive as a bare array and sometimes wrapped in a
// {"data": [...]} envelope depending on endpoint.
type Connector struct {
	cfg    config.ExchangeConfig
	rest   *kernel.RESTClient
	signer *kernel.JWTSigner
	wsURL  string

	ws *kernel.ReconnectingSession
}

func NewConnector(cfg config.ExchangeConfig) *Connector {
	baseURL := cfg.BaseURL
	wsURL := defaultWSBase
	if baseURL == "" {
		if cfg.Testnet {
			baseURL = testnetRESTBase
			wsURL = testnetWSBase
		} else {
			baseURL = defaultRESTBase
		}
	}

	var signer *kernel.JWTSigner
	if cfg.HasCredentials() {
		s, err := kernel.NewJWTSigner(cfg.SecretKey.Expose(), []byte(cfg.Passphrase.Expose()))
		if err == nil {
			signer = s
		} else {
			telemetry.Logger.Error().Err(err).Str("venue", venueName).Msg("failed to construct JWT signer")
		}
	}

	var restSigner kernel.Signer
	if signer != nil {
		restSigner = signer
	}

	rest := kernel.NewRESTClient(venueName, baseURL, cfg.Timeout, restSigner, kernel.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseWait,
	})

	return &Connector{cfg: cfg, rest: rest, signer: signer, wsURL: wsURL}
}

func (c *Connector) Name() string            { return venueName }
func (c *Connector) HasCredentials() bool    { return c.signer != nil }
func (c *Connector) GetWebSocketURL() string { return c.wsURL }

// --- Market data -----------------------------------------------------------

type assetInfo struct {
	ID       string `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int32  `json:"decimals"`
}

type marketInfo struct {
	Symbol       string    `json:"symbol"`
	BaseAsset    assetInfo `json:"base_asset"`
	QuoteAsset   assetInfo `json:"quote_asset"`
	Status       string    `json:"status"`
	State        string    `json:"state"`
	TickSize     string    `json:"tick_size"`
	StepSize     string    `json:"step_size"`
	MinOrderSize string    `json:"min_order_size"`
	MaxOrderSize string    `json:"max_order_size"`
	MinPrice     string    `json:"min_price"`
	MaxPrice     string    `json:"max_price"`
}

// decodeMaybeWrapped unmarshals raw either as []T directly, or, failing
// that, as {"data": [T]}, matching rest.rs's fallback parsing on every
// list endpoint (get_markets, get_funding_rates, get_funding_rate_history,
// get_account_balances, get_positions).
func decodeMaybeWrapped[T any](raw json.RawMessage) ([]T, error) {
	var direct []T
	if err := json.Unmarshal(raw, &direct); err == nil {
		return direct, nil
	}

	var wrapped struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, xerrors.New(xerrors.KindInvalidResponseFormat, venueName, "unexpected list response format")
	}
	return wrapped.Data, nil
}

func (c *Connector) GetMarkets(ctx context.Context) ([]types.Market, error) {
	raw, err := kernel.GetJSON[json.RawMessage](ctx, c.rest, "/v1/markets", nil, false)
	if err != nil {
		return nil, err
	}
	list, err := decodeMaybeWrapped[marketInfo](raw)
	if err != nil {
		return nil, err
	}

	markets := make([]types.Market, 0, len(list))
	for _, m := range list {
		mk := types.Market{
			Symbol:         types.Symbol{Base: m.BaseAsset.Symbol, Quote: m.QuoteAsset.Symbol, Native: m.Symbol},
			Status:         mapMarketStatus(m.Status),
			BasePrecision:  m.BaseAsset.Decimals,
			QuotePrecision: m.QuoteAsset.Decimals,
		}
		if d := mustDecimal(m.MinOrderSize); !d.IsZero() {
			mk.MinQty = &d
		}
		if d := mustDecimal(m.MaxOrderSize); !d.IsZero() {
			mk.MaxQty = &d
		}
		if d := mustDecimal(m.MinPrice); !d.IsZero() {
			mk.MinPrice = &d
		}
		if d := mustDecimal(m.MaxPrice); !d.IsZero() {
			mk.MaxPrice = &d
		}
		markets = append(markets, mk)
	}
	return markets, nil
}

func mapMarketStatus(s string) types.MarketStatus {
	switch s {
	case "ACTIVE", "OPEN":
		return types.MarketStatusTrading
	case "CLOSED", "DELISTED":
		return types.MarketStatusHalted
	case "PAUSED":
		return types.MarketStatusBreak
	default:
		return types.MarketStatusUnknown
	}
}

// klineRow is Paradex's tuple-shaped candle:
// [timestamp, open, high, low, close, volume], per conversions.rs's
// convert_paradex_kline.
type klineRow [6]json.RawMessage

func (c *Connector) GetKlines(ctx context.Context, symbol types.Symbol, interval types.KlineInterval, limit int) ([]types.Kline, error) {
	query := url.Values{}
	query.Set("symbol", symbol.Native)
	query.Set("interval", intervalToWire(interval))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	rows, err := kernel.GetJSON[[]klineRow](ctx, c.rest, "/v1/klines", query, false)
	if err != nil {
		return nil, err
	}

	step := interval.Milliseconds()
	if step == 0 {
		step = 60_000
	}

	klines := make([]types.Kline, 0, len(rows))
	for _, row := range rows {
		openTime := decodeRawInt64(row[0])
		k := types.Kline{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  openTime,
			CloseTime: openTime + step,
			Open:      mustDecimal(decodeRawString(row[1])),
			High:      mustDecimal(decodeRawString(row[2])),
			Low:       mustDecimal(decodeRawString(row[3])),
			Close:     mustDecimal(decodeRawString(row[4])),
			Volume:    mustDecimal(decodeRawString(row[5])),
			Final:     true,
		}
		if err := k.Validate(); err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func decodeRawInt64(raw json.RawMessage) int64 {
	var n int64
	_ = json.Unmarshal(raw, &n)
	return n
}

func decodeRawString(raw json.RawMessage) string {
	var s string
	_ = json.Unmarshal(raw, &s)
	return s
}

func (c *Connector) SubscribeMarketData(ctx context.Context, subs []contracts.Subscription) (<-chan contracts.MarketDataEvent, error) {
	streams := make([]string, 0, len(subs))
	for _, sub := range subs {
		switch sub.Type {
		case contracts.SubscribeTicker:
			streams = append(streams, TickerStream(sub.Symbol.Native))
		case contracts.SubscribeOrderBook:
			streams = append(streams, DepthStream(sub.Symbol.Native, sub.Depth))
		case contracts.SubscribeTrade:
			streams = append(streams, TradeStream(sub.Symbol.Native))
		case contracts.SubscribeKline:
			streams = append(streams, KlineStream(sub.Symbol.Native, intervalToWire(sub.Interval)))
		}
	}

	if c.ws == nil {
		codec := &Codec{}
		c.ws = kernel.NewReconnectingSession(venueName, func() *kernel.WSSession {
			return kernel.NewWSSession(venueName, c.wsURL, codec)
		}, kernel.DefaultReconnectConfig())
		if err := c.ws.Connect(ctx); err != nil {
			return nil, err
		}
	}

	if err := c.ws.Subscribe(streams); err != nil {
		return nil, err
	}

	out := make(chan contracts.MarketDataEvent, 1000)
	go func() {
		defer close(out)
		for {
			msg, err := c.ws.NextMessage(ctx)
			if err != nil {
				telemetry.Logger.Warn().Err(err).Str("venue", venueName).Msg("market data stream terminated")
				return
			}
			if event, ok := toMarketDataEvent(msg); ok {
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

func toMarketDataEvent(msg any) (contracts.MarketDataEvent, bool) {
	m, ok := msg.(*Message)
	if !ok || m == nil {
		return contracts.MarketDataEvent{}, false
	}

	switch m.Kind {
	case KindTicker:
		t := m.Ticker
		return contracts.MarketDataEvent{Type: contracts.EventTicker, Ticker: &types.Ticker{
			Symbol: symbolFromNative(t.Symbol), LastPrice: mustDecimal(t.LastPrice), HighPrice: mustDecimal(t.HighPrice),
			LowPrice: mustDecimal(t.LowPrice), Volume: mustDecimal(t.Volume), PriceChange: mustDecimal(t.PriceChange),
			PriceChangePercent: mustDecimal(t.PriceChangePercent),
		}}, true
	case KindOrderBook:
		ob := m.OrderBook
		return contracts.MarketDataEvent{Type: contracts.EventOrderBook, OrderBook: &types.OrderBook{
			Symbol: symbolFromNative(ob.Symbol), Bids: parseLevels(ob.Bids), Asks: parseLevels(ob.Asks), LastUpdateID: ob.UpdateID,
		}}, true
	case KindTrade:
		tr := m.Trade
		return contracts.MarketDataEvent{Type: contracts.EventTrade, Trade: &types.Trade{
			Symbol: symbolFromNative(tr.Symbol), TradeID: strconv.FormatInt(tr.TradeID, 10), Price: mustDecimal(tr.Price),
			Quantity: mustDecimal(tr.Quantity), Timestamp: tr.Timestamp, IsBuyerMaker: tr.IsBuyerMM,
		}}, true
	case KindKline:
		kl := m.Kline
		return contracts.MarketDataEvent{Type: contracts.EventKline, Kline: &types.Kline{
			Symbol: symbolFromNative(kl.Symbol), Interval: types.KlineInterval(kl.Interval), OpenTime: kl.StartTime, CloseTime: kl.EndTime,
			Open: mustDecimal(kl.Open), High: mustDecimal(kl.High), Low: mustDecimal(kl.Low), Close: mustDecimal(kl.Close),
			Volume: mustDecimal(kl.Volume), Final: kl.Final,
		}}, true
	default:
		return contracts.MarketDataEvent{}, false
	}
}

// --- Funding rates -----------------------------------------------------------

type fundingRateInfo struct {
	Symbol          string `json:"symbol"`
	FundingRate     string `json:"funding_rate"`
	NextFundingTime int64  `json:"next_funding_time"`
	MarkPrice       string `json:"mark_price"`
	IndexPrice      string `json:"index_price"`
	Timestamp       int64  `json:"timestamp"`
}

func (c *Connector) GetFundingRate(ctx context.Context, symbol types.Symbol) (types.FundingRate, error) {
	query := url.Values{}
	query.Set("symbols", symbol.Native)

	raw, err := kernel.GetJSON[json.RawMessage](ctx, c.rest, "/v1/funding/rates", query, false)
	if err != nil {
		return types.FundingRate{}, err
	}
	list, err := decodeMaybeWrapped[fundingRateInfo](raw)
	if err != nil {
		return types.FundingRate{}, err
	}
	if len(list) == 0 {
		return types.FundingRate{}, xerrors.New(xerrors.KindInvalidResponseFormat, venueName, "no funding rate entries for symbol")
	}

	f := list[0]
	rate := types.FundingRate{Symbol: symbol, Rate: mustDecimal(f.FundingRate), Timestamp: f.Timestamp}
	if mp := mustDecimal(f.MarkPrice); !mp.IsZero() {
		rate.MarkPrice = &mp
	}
	if ip := mustDecimal(f.IndexPrice); !ip.IsZero() {
		rate.IndexPrice = &ip
	}
	if f.NextFundingTime != 0 {
		nft := f.NextFundingTime
		rate.NextFundingTime = &nft
	}
	return rate, nil
}

// --- Trading -----------------------------------------------------------------

type orderRequestBody struct {
	Market      string `json:"market"`
	Side        string `json:"side"`
	Type        string `json:"type"`
	Size        string `json:"size"`
	Price       string `json:"price,omitempty"`
	StopPrice   string `json:"stop_price,omitempty"`
	TimeInForce string `json:"time_in_force,omitempty"`
}

type orderResponse struct {
	ID        string `json:"id"`
	ClientID  string `json:"client_id"`
	Market    string `json:"market"`
	Side      string `json:"side"`
	OrderType string `json:"order_type"`
	Size      string `json:"size"`
	Price     string `json:"price"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

func (c *Connector) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResponse, error) {
	if !c.HasCredentials() {
		return types.OrderResponse{}, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}
	if err := req.Validate(); err != nil {
		return types.OrderResponse{}, err
	}

	body := orderRequestBody{
		Market: req.Symbol.Native,
		Side:   sideToWire(req.Side),
		Type:   orderTypeToWire(req.Type),
		Size:   formatDecimal(req.Quantity),
	}
	if req.Price != nil {
		body.Price = formatDecimal(*req.Price)
	}
	if req.StopPrice != nil {
		body.StopPrice = formatDecimal(*req.StopPrice)
	}
	if req.TimeInForce != nil {
		body.TimeInForce = string(*req.TimeInForce)
	}

	resp, err := kernel.PostJSON[orderResponse](ctx, c.rest, "/v1/orders", nil, body, true)
	if err != nil {
		return types.OrderResponse{}, err
	}

	timestamp := time.Now().UnixMilli()
	if t, err := time.Parse(time.RFC3339, resp.CreatedAt); err == nil {
		timestamp = t.UnixMilli()
	}

	return types.OrderResponse{
		OrderID:       resp.ID,
		ClientOrderID: resp.ClientID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Status:        resp.Status,
		Timestamp:     timestamp,
	}, nil
}

func (c *Connector) CancelOrder(ctx context.Context, symbol types.Symbol, orderID string) error {
	if !c.HasCredentials() {
		return xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}

	endpoint := fmt.Sprintf("/v1/orders/%s", orderID)
	_, err := kernel.DeleteJSON[json.RawMessage](ctx, c.rest, endpoint, nil, true)
	return err
}

// --- Account -----------------------------------------------------------------

type balanceInfo struct {
	Asset     string `json:"asset"`
	Available string `json:"available"`
	Locked    string `json:"locked"`
	Total     string `json:"total"`
}

func (c *Connector) GetAccountBalance(ctx context.Context) ([]types.Balance, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	raw, err := kernel.GetJSON[json.RawMessage](ctx, c.rest, "/v1/account/balances", nil, true)
	if err != nil {
		return nil, err
	}
	list, err := decodeMaybeWrapped[balanceInfo](raw)
	if err != nil {
		return nil, err
	}

	balances := make([]types.Balance, 0, len(list))
	for _, b := range list {
		balances = append(balances, types.Balance{
			Asset:  b.Asset,
			Free:   mustDecimal(b.Available),
			Locked: mustDecimal(b.Locked),
		})
	}
	return balances, nil
}

type positionInfo struct {
	Market            string  `json:"market"`
	Side              string  `json:"side"`
	AverageEntryPrice string  `json:"average_entry_price"`
	Size              string  `json:"size"`
	UnrealizedPnl     string  `json:"unrealized_pnl"`
	LiquidationPrice  *string `json:"liquidation_price"`
	Leverage          string  `json:"leverage"`
}

func (c *Connector) GetPositions(ctx context.Context) ([]types.Position, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	raw, err := kernel.GetJSON[json.RawMessage](ctx, c.rest, "/v1/account/positions", nil, true)
	if err != nil {
		return nil, err
	}
	list, err := decodeMaybeWrapped[positionInfo](raw)
	if err != nil {
		return nil, err
	}

	positions := make([]types.Position, 0, len(list))
	for _, p := range list {
		pos := types.Position{
			Symbol:        symbolFromNative(p.Market),
			Side:          positionSideFromWire(p.Side),
			EntryPrice:    mustDecimal(p.AverageEntryPrice),
			Amount:        mustDecimal(p.Size),
			UnrealizedPnL: mustDecimal(p.UnrealizedPnl),
			Leverage:      mustDecimal(p.Leverage),
		}
		if p.LiquidationPrice != nil {
			liq := mustDecimal(*p.LiquidationPrice)
			pos.LiquidationPrice = &liq
		}
		positions = append(positions, pos)
	}
	return positions, nil
}
