package okx

import (
	"context"
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
	venueName       = "okx"
	defaultRESTBase = "https://www.okx.com"
	defaultWSBase   = "wss://ws.okx.com:8443/ws/v5/public"
	defaultWSPriv   = "wss://ws.okx.com:8443/ws/v5/private"
)

// Connector implements contracts.Connector for OKX's v5 API. Every v5
// response is wrapped in {"code","msg","data":[...]}, which
// okxResponse/decodeOKX unwraps uniformly for every endpoint below.
type Connector struct {
	cfg    config.ExchangeConfig
	rest   *kernel.RESTClient
	signer *kernel.OKXSigner
	wsURL  string

	ws *kernel.ReconnectingSession
}

func NewConnector(cfg config.ExchangeConfig) *Connector {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultRESTBase
	}
	wsURL := defaultWSBase

	var signer *kernel.OKXSigner
	if cfg.HasCredentials() {
		signer = kernel.NewOKXSigner(cfg.APIKey, cfg.SecretKey.Expose(), cfg.Passphrase.Expose())
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

// okxResponse is the {"code","msg","data":[...]} envelope every v5
// endpoint replies with; "0" is success, anything else is an API error.
type okxResponse[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

func decodeOKX[T any](ctx context.Context, rest *kernel.RESTClient, method, endpoint string, query url.Values, body any, signed bool) ([]T, error) {
	var (
		resp okxResponse[T]
		err  error
	)
	switch method {
	case "GET":
		resp, err = kernel.GetJSON[okxResponse[T]](ctx, rest, endpoint, query, signed)
	case "POST":
		resp, err = kernel.PostJSON[okxResponse[T]](ctx, rest, endpoint, query, body, signed)
	default:
		return nil, xerrors.New(xerrors.KindInvalidParameters, venueName, "unsupported method "+method)
	}
	if err != nil {
		return nil, err
	}
	if resp.Code != "0" {
		return nil, xerrors.APIError(venueName, 0, resp.Code+": "+resp.Msg)
	}
	return resp.Data, nil
}

// --- Market data -----------------------------------------------------------

type instrumentInfo struct {
	InstID   string `json:"instId"`
	BaseCcy  string `json:"baseCcy"`
	QuoteCcy string `json:"quoteCcy"`
	State    string `json:"state"`
	LotSz    string `json:"lotSz"`
	MinSz    string `json:"minSz"`
	MaxLmtSz string `json:"maxLmtSz"`
	TickSz   string `json:"tickSz"`
}

func (c *Connector) GetMarkets(ctx context.Context) ([]types.Market, error) {
	query := url.Values{}
	query.Set("instType", "SPOT")

	list, err := decodeOKX[instrumentInfo](ctx, c.rest, "GET", "/api/v5/public/instruments", query, nil, false)
	if err != nil {
		return nil, err
	}

	markets := make([]types.Market, 0, len(list))
	for _, m := range list {
		mk := types.Market{
			Symbol: types.Symbol{Base: m.BaseCcy, Quote: m.QuoteCcy, Native: m.InstID},
			Status: mapMarketState(m.State),
		}
		if d := mustDecimal(m.MinSz); !d.IsZero() {
			mk.MinQty = &d
		}
		if d := mustDecimal(m.MaxLmtSz); !d.IsZero() {
			mk.MaxQty = &d
		}
		if d := mustDecimal(m.TickSz); !d.IsZero() {
			mk.MinPrice = &d
		}
		markets = append(markets, mk)
	}
	return markets, nil
}

// klineRow is OKX's tuple-shaped candle:
// [ts, o, h, l, c, vol, volCcy, volCcyQuote, confirm].
type klineRow [9]string

func (c *Connector) GetKlines(ctx context.Context, symbol types.Symbol, interval types.KlineInterval, limit int) ([]types.Kline, error) {
	query := url.Values{}
	query.Set("instId", symbolToInstID(symbol))
	query.Set("bar", intervalToWire(interval))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	rows, err := decodeOKX[klineRow](ctx, c.rest, "GET", "/api/v5/market/candles", query, nil, false)
	if err != nil {
		return nil, err
	}

	step := interval.Milliseconds()
	if step == 0 {
		step = 60_000
	}

	klines := make([]types.Kline, 0, len(rows))
	for _, row := range rows {
		openTime := mustUnixMillis(row[0])
		k := types.Kline{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  openTime,
			CloseTime: openTime + step,
			Open:      mustDecimal(row[1]),
			High:      mustDecimal(row[2]),
			Low:       mustDecimal(row[3]),
			Close:     mustDecimal(row[4]),
			Volume:    mustDecimal(row[5]),
			Final:     row[8] == "1",
		}
		if err := k.Validate(); err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func mustUnixMillis(s string) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func (c *Connector) SubscribeMarketData(ctx context.Context, subs []contracts.Subscription) (<-chan contracts.MarketDataEvent, error) {
	streams := make([]string, 0, len(subs))
	for _, sub := range subs {
		instID := symbolToInstID(sub.Symbol)
		switch sub.Type {
		case contracts.SubscribeTicker:
			streams = append(streams, TickerStream(instID))
		case contracts.SubscribeOrderBook:
			streams = append(streams, DepthStream(instID))
		case contracts.SubscribeTrade:
			streams = append(streams, TradeStream(instID))
		case contracts.SubscribeKline:
			streams = append(streams, KlineStream(instID, intervalToWire(sub.Interval)))
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
			Symbol: instIDToSymbol(m.InstID), LastPrice: mustDecimal(t.Last), HighPrice: mustDecimal(t.High24h),
			LowPrice: mustDecimal(t.Low24h), Volume: mustDecimal(t.Vol24h),
			PriceChange: mustDecimal(t.Last).Sub(mustDecimal(t.Open24h)),
		}}, true
	case KindOrderBook:
		ob := m.OrderBook
		return contracts.MarketDataEvent{Type: contracts.EventOrderBook, OrderBook: &types.OrderBook{
			Symbol: instIDToSymbol(m.InstID), Bids: parseBookLevels(ob.Bids), Asks: parseBookLevels(ob.Asks), LastUpdateID: ob.SeqID,
		}}, true
	case KindTrade:
		tr := m.Trade
		return contracts.MarketDataEvent{Type: contracts.EventTrade, Trade: &types.Trade{
			Symbol: instIDToSymbol(m.InstID), TradeID: tr.TradeID, Price: mustDecimal(tr.Price),
			Quantity: mustDecimal(tr.Size), Timestamp: mustUnixMillis(tr.Timestamp), IsBuyerMaker: tr.Side == "sell",
		}}, true
	case KindKline:
		kl := m.Kline
		openTime := mustUnixMillis(kl[0])
		return contracts.MarketDataEvent{Type: contracts.EventKline, Kline: &types.Kline{
			Symbol: instIDToSymbol(m.InstID), OpenTime: openTime, Open: mustDecimal(kl[1]), High: mustDecimal(kl[2]), Low: mustDecimal(kl[3]),
			Close: mustDecimal(kl[4]), Volume: mustDecimal(kl[5]), Final: kl[8] == "1",
		}}, true
	default:
		return contracts.MarketDataEvent{}, false
	}
}

// --- Funding rates -----------------------------------------------------------

type fundingRateInfo struct {
	InstID          string `json:"instId"`
	FundingRate     string `json:"fundingRate"`
	NextFundingRate string `json:"nextFundingRate"`
	FundingTime     string `json:"fundingTime"`
	NextFundingTime string `json:"nextFundingTime"`
}

func (c *Connector) GetFundingRate(ctx context.Context, symbol types.Symbol) (types.FundingRate, error) {
	query := url.Values{}
	query.Set("instId", symbolToInstID(symbol))

	list, err := decodeOKX[fundingRateInfo](ctx, c.rest, "GET", "/api/v5/public/funding-rate", query, nil, false)
	if err != nil {
		return types.FundingRate{}, err
	}
	if len(list) == 0 {
		return types.FundingRate{}, xerrors.New(xerrors.KindInvalidResponseFormat, venueName, "no funding rate entries for symbol")
	}

	f := list[0]
	rate := types.FundingRate{Symbol: symbol, Rate: mustDecimal(f.FundingRate)}
	if nr := mustDecimal(f.NextFundingRate); !nr.IsZero() {
		rate.NextRate = &nr
	}
	if ft := mustUnixMillis(f.FundingTime); ft != 0 {
		rate.FundingTime = &ft
	}
	if nft := mustUnixMillis(f.NextFundingTime); nft != 0 {
		rate.NextFundingTime = &nft
	}
	return rate, nil
}

// --- Trading -----------------------------------------------------------------

type orderRequestBody struct {
	InstID  string `json:"instId"`
	TdMode  string `json:"tdMode"`
	Side    string `json:"side"`
	OrdType string `json:"ordType"`
	Sz      string `json:"sz"`
	Px      string `json:"px,omitempty"`
	ClOrdID string `json:"clOrdId,omitempty"`
	TgtCcy  string `json:"tgtCcy,omitempty"`
}

type orderResponse struct {
	OrdID   string `json:"ordId"`
	ClOrdID string `json:"clOrdId"`
	SCode   string `json:"sCode"`
	SMsg    string `json:"sMsg"`
}

func (c *Connector) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResponse, error) {
	if !c.HasCredentials() {
		return types.OrderResponse{}, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}
	if err := req.Validate(); err != nil {
		return types.OrderResponse{}, err
	}

	ordType := orderTypeToWire(req.Type, req.TimeInForce)
	body := orderRequestBody{
		InstID:  symbolToInstID(req.Symbol),
		TdMode:  "cash",
		Side:    sideToWire(req.Side),
		OrdType: ordType,
		Sz:      formatDecimal(req.Quantity),
		ClOrdID: req.ClientOrderID,
	}
	if ordType != "market" && req.Price != nil {
		body.Px = formatDecimal(*req.Price)
	}
	if ordType == "market" {
		if req.Side == types.Buy {
			body.TgtCcy = "quote_ccy"
		} else {
			body.TgtCcy = "base_ccy"
		}
	}

	list, err := decodeOKX[orderResponse](ctx, c.rest, "POST", "/api/v5/trade/order", nil, body, true)
	if err != nil {
		return types.OrderResponse{}, err
	}
	if len(list) == 0 {
		return types.OrderResponse{}, xerrors.New(xerrors.KindInvalidResponseFormat, venueName, "empty order response")
	}

	resp := list[0]
	status := "NEW"
	if resp.SCode != "0" {
		status = "REJECTED"
	}

	return types.OrderResponse{
		OrderID:       resp.OrdID,
		ClientOrderID: resp.ClOrdID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Status:        status,
		Timestamp:     time.Now().UnixMilli(),
	}, nil
}

type cancelRequestBody struct {
	InstID string `json:"instId"`
	OrdID  string `json:"ordId"`
}

func (c *Connector) CancelOrder(ctx context.Context, symbol types.Symbol, orderID string) error {
	if !c.HasCredentials() {
		return xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}

	body := cancelRequestBody{InstID: symbolToInstID(symbol), OrdID: orderID}
	_, err := decodeOKX[orderResponse](ctx, c.rest, "POST", "/api/v5/trade/cancel-order", nil, body, true)
	return err
}

// --- Account -----------------------------------------------------------------

type balanceDetail struct {
	Ccy       string `json:"ccy"`
	Eq        string `json:"eq"`
	AvailBal  string `json:"availBal"`
	FrozenBal string `json:"frozenBal"`
}

type accountBalance struct {
	Details []balanceDetail `json:"details"`
}

func (c *Connector) GetAccountBalance(ctx context.Context) ([]types.Balance, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	list, err := decodeOKX[accountBalance](ctx, c.rest, "GET", "/api/v5/account/balance", nil, nil, true)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}

	balances := make([]types.Balance, 0, len(list[0].Details))
	for _, d := range list[0].Details {
		balances = append(balances, types.Balance{
			Asset:  d.Ccy,
			Free:   mustDecimal(d.AvailBal),
			Locked: mustDecimal(d.FrozenBal),
		})
	}
	return balances, nil
}

type positionInfo struct {
	InstID  string `json:"instId"`
	PosSide string `json:"posSide"`
	Pos     string `json:"pos"`
	AvgPx   string `json:"avgPx"`
	Upl     string `json:"upl"`
	LiqPx   string `json:"liqPx"`
	Lever   string `json:"lever"`
}

func (c *Connector) GetPositions(ctx context.Context) ([]types.Position, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	list, err := decodeOKX[positionInfo](ctx, c.rest, "GET", "/api/v5/account/positions", nil, nil, true)
	if err != nil {
		return nil, err
	}

	positions := make([]types.Position, 0, len(list))
	for _, p := range list {
		pos := types.Position{
			Symbol:        instIDToSymbol(p.InstID),
			Side:          positionSideFromWire(p.PosSide),
			EntryPrice:    mustDecimal(p.AvgPx),
			Amount:        mustDecimal(p.Pos),
			UnrealizedPnL: mustDecimal(p.Upl),
			Leverage:      mustDecimal(p.Lever),
		}
		if liq := mustDecimal(p.LiqPx); !liq.IsZero() {
			pos.LiquidationPrice = &liq
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// positionSideFromWire maps OKX's posSide field; "net" mode (the default
// for spot-margin/one-way futures) reports quantity sign instead of a
// long/short label, so it falls back to PositionBoth.
func positionSideFromWire(side string) types.PositionSide {
	switch side {
	case "long":
		return types.PositionLong
	case "short":
		return types.PositionShort
	default:
		return types.PositionBoth
	}
}
