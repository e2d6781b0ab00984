package backpack

import (
	"context"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"xconnect/config"
	"xconnect/contracts"
	"xconnect/kernel"
	"xconnect/telemetry"
	"xconnect/types"
	"xconnect/xerrors"
)

const (
	venueName       = "backpack"
	defaultRESTBase = "https://api.backpack.exchange"
	defaultWSBase   = "wss://ws.backpack.exchange"
)

// Connector implements contracts.Connector for Backpack Exchange, which
// serves both spot and perpetual markets from a single REST/WS surface;
// unlike Binance/Bybit there is no separate "-perp" venue package.
type Connector struct {
	cfg    config.ExchangeConfig
	rest   *kernel.RESTClient
	signer *kernel.Ed25519Signer
	wsURL  string

	ws *kernel.ReconnectingSession
}

func NewConnector(cfg config.ExchangeConfig) *Connector {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultRESTBase
	}
	wsURL := defaultWSBase

	var signer *kernel.Ed25519Signer
	if cfg.HasCredentials() {
		s, err := kernel.NewEd25519Signer(cfg.SecretKey.Expose())
		if err == nil {
			signer = s
		} else {
			telemetry.Logger.Error().Err(err).Str("venue", venueName).Msg("failed to construct Ed25519 signer")
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

type marketInfo struct {
	Symbol         string `json:"symbol"`
	BaseSymbol     string `json:"baseSymbol"`
	QuoteSymbol    string `json:"quoteSymbol"`
	OrderBookState string `json:"orderBookState"`
	Filters        struct {
		Price struct {
			TickSize string `json:"tickSize"`
		} `json:"price"`
		Quantity struct {
			MinQuantity string `json:"minQuantity"`
			MaxQuantity string `json:"maxQuantity"`
		} `json:"quantity"`
	} `json:"filters"`
}

func (c *Connector) GetMarkets(ctx context.Context) ([]types.Market, error) {
	list, err := kernel.GetJSON[[]marketInfo](ctx, c.rest, "/api/v1/markets", nil, false)
	if err != nil {
		return nil, err
	}

	markets := make([]types.Market, 0, len(list))
	for _, m := range list {
		mk := types.Market{
			Symbol:         types.Symbol{Base: m.BaseSymbol, Quote: m.QuoteSymbol, Native: m.Symbol},
			Status:         mapMarketStatus(m.OrderBookState),
			BasePrecision:  8,
			QuotePrecision: 8,
		}
		if d := mustDecimal(m.Filters.Quantity.MinQuantity); !d.IsZero() {
			mk.MinQty = &d
		}
		if d := mustDecimal(m.Filters.Quantity.MaxQuantity); !d.IsZero() {
			mk.MaxQty = &d
		}
		if d := mustDecimal(m.Filters.Price.TickSize); !d.IsZero() {
			mk.MinPrice = &d
		}
		markets = append(markets, mk)
	}
	return markets, nil
}

func mapMarketStatus(s string) types.MarketStatus {
	switch s {
	case "Open":
		return types.MarketStatusTrading
	case "Closed":
		return types.MarketStatusHalted
	case "PostOnly", "RestingLimitOnly":
		return types.MarketStatusBreak
	default:
		return types.MarketStatusUnknown
	}
}

type klineRow struct {
	Start  string `json:"start"`
	End    string `json:"end"`
	Open   string `json:"open"`
	High   string `json:"high"`
	Low    string `json:"low"`
	Close  string `json:"close"`
	Volume string `json:"volume"`
}

func (c *Connector) GetKlines(ctx context.Context, symbol types.Symbol, interval types.KlineInterval, limit int) ([]types.Kline, error) {
	query := url.Values{}
	query.Set("symbol", symbol.Native)
	query.Set("interval", intervalToWire(interval))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	rows, err := kernel.GetJSON[[]klineRow](ctx, c.rest, "/api/v1/klines", query, false)
	if err != nil {
		return nil, err
	}

	klines := make([]types.Kline, 0, len(rows))
	for _, row := range rows {
		openTime := mustUnixMillis(row.Start)
		closeTime := mustUnixMillis(row.End)
		if closeTime <= openTime {
			step := interval.Milliseconds()
			if step == 0 {
				step = 60_000
			}
			closeTime = openTime + step
		}
		k := types.Kline{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  openTime,
			CloseTime: closeTime,
			Open:      mustDecimal(row.Open),
			High:      mustDecimal(row.High),
			Low:       mustDecimal(row.Low),
			Close:     mustDecimal(row.Close),
			Volume:    mustDecimal(row.Volume),
			Final:     true,
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
		switch sub.Type {
		case contracts.SubscribeTicker:
			streams = append(streams, TickerStream(sub.Symbol.Native))
		case contracts.SubscribeOrderBook:
			streams = append(streams, DepthStream(sub.Symbol.Native))
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
	FundingRate     string `json:"fundingRate"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	NextFundingTime int64  `json:"nextFundingTimestamp"`
}

func (c *Connector) GetFundingRate(ctx context.Context, symbol types.Symbol) (types.FundingRate, error) {
	query := url.Values{}
	query.Set("symbol", symbol.Native)

	list, err := kernel.GetJSON[[]fundingRateInfo](ctx, c.rest, "/api/v1/funding/rates", query, false)
	if err != nil {
		return types.FundingRate{}, err
	}
	if len(list) == 0 {
		return types.FundingRate{}, xerrors.New(xerrors.KindInvalidResponseFormat, venueName, "no funding rate entries for symbol")
	}

	f := list[0]
	rate := types.FundingRate{Symbol: symbol, Rate: mustDecimal(f.FundingRate)}
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
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	OrderType     string `json:"orderType"`
	Quantity      string `json:"quantity"`
	Price         string `json:"price,omitempty"`
	TimeInForce   string `json:"timeInForce,omitempty"`
	ClientOrderID string `json:"clientId,omitempty"`
}

type orderResponse struct {
	OrderID       int64  `json:"id"`
	ClientOrderID *int64 `json:"clientId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	CreatedAt     int64  `json:"createdAt"`
}

func (c *Connector) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResponse, error) {
	if !c.HasCredentials() {
		return types.OrderResponse{}, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}
	if err := req.Validate(); err != nil {
		return types.OrderResponse{}, err
	}

	body := orderRequestBody{
		Symbol:    req.Symbol.Native,
		Side:      sideToWire(req.Side),
		OrderType: orderTypeToWire(req.Type),
		Quantity:  formatDecimal(req.Quantity),
	}
	if req.Type == types.Limit {
		if req.Price != nil {
			body.Price = formatDecimal(*req.Price)
		}
		if req.TimeInForce != nil {
			body.TimeInForce = tifToWire(*req.TimeInForce)
		} else {
			body.TimeInForce = tifToWire(types.GTC)
		}
	}

	resp, err := kernel.PostJSON[orderResponse](ctx, c.rest, "/api/v1/order", nil, body, true)
	if err != nil {
		return types.OrderResponse{}, err
	}

	clientID := req.ClientOrderID
	if resp.ClientOrderID != nil {
		clientID = strconv.FormatInt(*resp.ClientOrderID, 10)
	}

	return types.OrderResponse{
		OrderID:       strconv.FormatInt(resp.OrderID, 10),
		ClientOrderID: clientID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Status:        resp.Status,
		Timestamp:     resp.CreatedAt,
	}, nil
}

func (c *Connector) CancelOrder(ctx context.Context, symbol types.Symbol, orderID string) error {
	if !c.HasCredentials() {
		return xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}

	query := url.Values{}
	query.Set("symbol", symbol.Native)
	query.Set("orderId", orderID)

	_, err := kernel.DeleteJSON[orderResponse](ctx, c.rest, "/api/v1/order", query, true)
	return err
}

// --- Account -----------------------------------------------------------------

type assetBalance struct {
	Available string `json:"available"`
	Locked    string `json:"locked"`
}

func (c *Connector) GetAccountBalance(ctx context.Context) ([]types.Balance, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	balanceMap, err := kernel.GetJSON[map[string]assetBalance](ctx, c.rest, "/api/v1/balances", nil, true)
	if err != nil {
		return nil, err
	}

	balances := make([]types.Balance, 0, len(balanceMap))
	for asset, b := range balanceMap {
		balances = append(balances, types.Balance{
			Asset:  asset,
			Free:   mustDecimal(b.Available),
			Locked: mustDecimal(b.Locked),
		})
	}
	return balances, nil
}

type positionInfo struct {
	Symbol              string `json:"symbol"`
	NetQuantity         string `json:"netQuantity"`
	EntryPrice          string `json:"entryPrice"`
	PnlUnrealized       string `json:"pnlUnrealized"`
	EstLiquidationPrice string `json:"estLiquidationPrice"`
}

func (c *Connector) GetPositions(ctx context.Context) ([]types.Position, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	list, err := kernel.GetJSON[[]positionInfo](ctx, c.rest, "/api/v1/positions", nil, true)
	if err != nil {
		return nil, err
	}

	positions := make([]types.Position, 0, len(list))
	for _, p := range list {
		netQty := mustDecimal(p.NetQuantity)
		pos := types.Position{
			Symbol:        symbolFromNative(p.Symbol),
			Side:          positionSideFromQty(netQty),
			EntryPrice:    mustDecimal(p.EntryPrice),
			Amount:        netQty,
			UnrealizedPnL: mustDecimal(p.PnlUnrealized),
			Leverage:      decimal.NewFromInt(1),
		}
		if liq := mustDecimal(p.EstLiquidationPrice); !liq.IsZero() {
			pos.LiquidationPrice = &liq
		}
		positions = append(positions, pos)
	}
	return positions, nil
}
