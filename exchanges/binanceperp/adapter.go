package binanceperp

import (
	"context"
	"encoding/json"
	"fmt"
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
	venueName       = "binanceperp"
	defaultRESTBase = "https://fapi.binance.com"
	defaultWSBase   = "wss://fstream.binance.com/ws"
)

// Connector implements contracts.Connector plus contracts.FundingRates
// for Binance's USDT-margined perpetual market, the spot adapter's
// direct sibling (same signing scheme, same combined-stream transport,
// futures-specific endpoints and fields).
type Connector struct {
	cfg    config.ExchangeConfig
	rest   *kernel.RESTClient
	signer *kernel.HMACSigner
	wsURL  string

	ws *kernel.ReconnectingSession
}

func NewConnector(cfg config.ExchangeConfig) *Connector {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultRESTBase
	}

	var signer *kernel.HMACSigner
	if cfg.HasCredentials() {
		signer = kernel.NewHMACSigner(cfg.APIKey, cfg.SecretKey.Expose(), kernel.HMACVariantBinance)
	}

	var restSigner kernel.Signer
	if signer != nil {
		restSigner = signer
	}

	rest := kernel.NewRESTClient(venueName, baseURL, cfg.Timeout, restSigner, kernel.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseWait,
	})

	return &Connector{cfg: cfg, rest: rest, signer: signer, wsURL: defaultWSBase}
}

func (c *Connector) Name() string            { return venueName }
func (c *Connector) HasCredentials() bool    { return c.signer != nil }
func (c *Connector) GetWebSocketURL() string { return c.wsURL }

type exchangeInfoResponse struct {
	Symbols []struct {
		Symbol            string `json:"symbol"`
		BaseAsset         string `json:"baseAsset"`
		QuoteAsset        string `json:"quoteAsset"`
		Status            string `json:"status"`
		PricePrecision    int32  `json:"pricePrecision"`
		QuantityPrecision int32  `json:"quantityPrecision"`
		Filters           []struct {
			FilterType string `json:"filterType"`
			MinQty     string `json:"minQty"`
			MaxQty     string `json:"maxQty"`
			MinPrice   string `json:"minPrice"`
			MaxPrice   string `json:"maxPrice"`
		} `json:"filters"`
	} `json:"symbols"`
}

func (c *Connector) GetMarkets(ctx context.Context) ([]types.Market, error) {
	resp, err := kernel.GetJSON[exchangeInfoResponse](ctx, c.rest, "/fapi/v1/exchangeInfo", nil, false)
	if err != nil {
		return nil, err
	}

	markets := make([]types.Market, 0, len(resp.Symbols))
	for _, s := range resp.Symbols {
		m := types.Market{
			Symbol:         types.Symbol{Base: s.BaseAsset, Quote: s.QuoteAsset, Native: s.Symbol},
			Status:         mapMarketStatus(s.Status),
			BasePrecision:  s.QuantityPrecision,
			QuotePrecision: s.PricePrecision,
		}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "LOT_SIZE":
				if d := mustDecimal(f.MinQty); !d.IsZero() {
					m.MinQty = &d
				}
				if d := mustDecimal(f.MaxQty); !d.IsZero() {
					m.MaxQty = &d
				}
			case "PRICE_FILTER":
				if d := mustDecimal(f.MinPrice); !d.IsZero() {
					m.MinPrice = &d
				}
				if d := mustDecimal(f.MaxPrice); !d.IsZero() {
					m.MaxPrice = &d
				}
			}
		}
		markets = append(markets, m)
	}
	return markets, nil
}

func mapMarketStatus(s string) types.MarketStatus {
	switch s {
	case "TRADING":
		return types.MarketStatusTrading
	case "BREAK":
		return types.MarketStatusBreak
	case "HALT", "PENDING_TRADING":
		return types.MarketStatusHalted
	default:
		return types.MarketStatusUnknown
	}
}

func (c *Connector) GetKlines(ctx context.Context, symbol types.Symbol, interval types.KlineInterval, limit int) ([]types.Kline, error) {
	query := url.Values{}
	query.Set("symbol", symbol.Native)
	query.Set("interval", intervalToWire(interval))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	rows, err := kernel.GetJSON[[][]json.RawMessage](ctx, c.rest, "/fapi/v1/klines", query, false)
	if err != nil {
		return nil, err
	}

	klines := make([]types.Kline, 0, len(rows))
	for _, row := range rows {
		k, err := parseKlineRow(symbol, interval, row)
		if err != nil {
			return nil, xerrors.New(xerrors.KindInvalidResponseFormat, venueName, err.Error())
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func parseKlineRow(symbol types.Symbol, interval types.KlineInterval, row []json.RawMessage) (types.Kline, error) {
	if len(row) < 9 {
		return types.Kline{}, fmt.Errorf("binanceperp: kline row has %d fields, want >= 9", len(row))
	}
	var openTime, closeTime, trades int64
	var open, high, low, close, volume, quoteVolume string

	fields := []struct {
		raw  json.RawMessage
		dest any
	}{
		{row[0], &openTime}, {row[1], &open}, {row[2], &high}, {row[3], &low},
		{row[4], &close}, {row[5], &volume}, {row[6], &closeTime}, {row[7], &quoteVolume}, {row[8], &trades},
	}
	for _, f := range fields {
		if err := json.Unmarshal(f.raw, f.dest); err != nil {
			return types.Kline{}, err
		}
	}

	k := types.Kline{
		Symbol: symbol, Interval: interval, OpenTime: openTime, CloseTime: closeTime,
		Open: mustDecimal(open), High: mustDecimal(high), Low: mustDecimal(low), Close: mustDecimal(close),
		Volume: mustDecimal(volume), QuoteVolume: mustDecimal(quoteVolume), Trades: trades, Final: true,
	}
	return k, k.Validate()
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
			event, ok := toMarketDataEvent(msg)
			if !ok {
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
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
			PriceChangePercent: mustDecimal(t.PriceChangePercent), OpenTime: t.OpenTime, CloseTime: t.CloseTime, Trades: t.Count,
		}}, true
	case KindOrderBook:
		ob := m.OrderBook
		return contracts.MarketDataEvent{Type: contracts.EventOrderBook, OrderBook: &types.OrderBook{
			Symbol: symbolFromNative(ob.Symbol), Bids: parseLevels(ob.Bids), Asks: parseLevels(ob.Asks), LastUpdateID: ob.FinalUpdateID,
		}}, true
	case KindTrade:
		tr := m.Trade
		return contracts.MarketDataEvent{Type: contracts.EventTrade, Trade: &types.Trade{
			Symbol: symbolFromNative(tr.Symbol), TradeID: formatInt(tr.TradeID), Price: mustDecimal(tr.Price),
			Quantity: mustDecimal(tr.Quantity), Timestamp: tr.TradeTime, IsBuyerMaker: tr.IsBuyerMaker,
		}}, true
	case KindKline:
		kl := m.Kline
		return contracts.MarketDataEvent{Type: contracts.EventKline, Kline: &types.Kline{
			Symbol: symbolFromNative(kl.Symbol), Interval: types.KlineInterval(kl.Kline.Interval),
			OpenTime: kl.Kline.StartTime, CloseTime: kl.Kline.CloseTime, Open: mustDecimal(kl.Kline.Open),
			High: mustDecimal(kl.Kline.High), Low: mustDecimal(kl.Kline.Low), Close: mustDecimal(kl.Kline.Close),
			Volume: mustDecimal(kl.Kline.Volume), QuoteVolume: mustDecimal(kl.Kline.QuoteVolume), Trades: kl.Kline.Trades, Final: kl.Kline.IsFinal,
		}}, true
	default:
		return contracts.MarketDataEvent{}, false
	}
}

// --- FundingRates -----------------------------------------------------

type premiumIndexResponse struct {
	Symbol          string `json:"symbol"`
	MarkPrice       string `json:"markPrice"`
	IndexPrice      string `json:"indexPrice"`
	LastFundingRate string `json:"lastFundingRate"`
	NextFundingTime int64  `json:"nextFundingTime"`
}

func (c *Connector) GetFundingRate(ctx context.Context, symbol types.Symbol) (types.FundingRate, error) {
	query := url.Values{}
	query.Set("symbol", symbol.Native)

	resp, err := kernel.GetJSON[premiumIndexResponse](ctx, c.rest, "/fapi/v1/premiumIndex", query, false)
	if err != nil {
		return types.FundingRate{}, err
	}

	mark := mustDecimal(resp.MarkPrice)
	index := mustDecimal(resp.IndexPrice)
	nextFunding := resp.NextFundingTime

	return types.FundingRate{
		Symbol:          symbol,
		Rate:            mustDecimal(resp.LastFundingRate),
		NextFundingTime: &nextFunding,
		MarkPrice:       &mark,
		IndexPrice:      &index,
	}, nil
}

// --- Trading ------------------------------------------------------------

type orderResponseWire struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	UpdateTime    int64  `json:"updateTime"`
}

func (c *Connector) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResponse, error) {
	if !c.HasCredentials() {
		return types.OrderResponse{}, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}
	if err := req.Validate(); err != nil {
		return types.OrderResponse{}, err
	}

	query := url.Values{}
	query.Set("symbol", req.Symbol.Native)
	query.Set("side", string(sideToWire(req.Side)))
	query.Set("type", string(orderTypeToWire(req.Type)))
	query.Set("quantity", formatDecimal(req.Quantity))
	if req.Price != nil {
		query.Set("price", formatDecimal(*req.Price))
	}
	if req.StopPrice != nil {
		query.Set("stopPrice", formatDecimal(*req.StopPrice))
	}
	if req.TimeInForce != nil {
		query.Set("timeInForce", string(tifToWire(*req.TimeInForce)))
	} else if req.Type == types.Limit {
		query.Set("timeInForce", string(tifToWire(types.GTC)))
	}
	if req.ClientOrderID != "" {
		query.Set("newClientOrderId", req.ClientOrderID)
	}

	resp, err := kernel.PostJSON[orderResponseWire](ctx, c.rest, "/fapi/v1/order", query, nil, true)
	if err != nil {
		return types.OrderResponse{}, err
	}

	price := mustDecimal(resp.Price)
	return types.OrderResponse{
		OrderID: formatInt(resp.OrderID), ClientOrderID: resp.ClientOrderID, Symbol: req.Symbol,
		Side: wireToOrderSide(resp.Side), Type: wireToOrderType(resp.Type), Quantity: mustDecimal(resp.ExecutedQty),
		Price: &price, Status: resp.Status, Timestamp: resp.UpdateTime,
	}, nil
}

func (c *Connector) CancelOrder(ctx context.Context, symbol types.Symbol, orderID string) error {
	if !c.HasCredentials() {
		return xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}
	query := url.Values{}
	query.Set("symbol", symbol.Native)
	query.Set("orderId", orderID)

	_, err := kernel.DeleteJSON[json.RawMessage](ctx, c.rest, "/fapi/v1/order", query, true)
	return err
}

// --- Account --------------------------------------------------------------

type accountResponse struct {
	Assets []struct {
		Asset            string `json:"asset"`
		WalletBalance    string `json:"walletBalance"`
		AvailableBalance string `json:"availableBalance"`
	} `json:"assets"`
	Positions []struct {
		Symbol           string `json:"symbol"`
		PositionAmt      string `json:"positionAmt"`
		EntryPrice       string `json:"entryPrice"`
		UnrealizedProfit string `json:"unrealizedProfit"`
		LiquidationPrice string `json:"liquidationPrice"`
		Leverage         string `json:"leverage"`
	} `json:"positions"`
}

func (c *Connector) GetAccountBalance(ctx context.Context) ([]types.Balance, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	resp, err := kernel.GetJSON[accountResponse](ctx, c.rest, "/fapi/v2/account", nil, true)
	if err != nil {
		return nil, err
	}

	balances := make([]types.Balance, 0, len(resp.Assets))
	for _, a := range resp.Assets {
		wallet := mustDecimal(a.WalletBalance)
		available := mustDecimal(a.AvailableBalance)
		balances = append(balances, types.Balance{
			Asset: a.Asset, Free: available, Locked: wallet.Sub(available),
		})
	}
	return balances, nil
}

func (c *Connector) GetPositions(ctx context.Context) ([]types.Position, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	resp, err := kernel.GetJSON[accountResponse](ctx, c.rest, "/fapi/v2/account", nil, true)
	if err != nil {
		return nil, err
	}

	positions := make([]types.Position, 0)
	for _, p := range resp.Positions {
		amount := mustDecimal(p.PositionAmt)
		if amount.IsZero() {
			continue
		}

		liq := mustDecimal(p.LiquidationPrice)
		var liqPrice *decimal.Decimal
		if !liq.IsZero() {
			liqPrice = &liq
		}

		positions = append(positions, types.Position{
			Symbol:           symbolFromNative(p.Symbol),
			Side:             positionSideFromWire(amount),
			EntryPrice:       mustDecimal(p.EntryPrice),
			Amount:           amount,
			UnrealizedPnL:    mustDecimal(p.UnrealizedProfit),
			LiquidationPrice: liqPrice,
			Leverage:         mustDecimal(p.Leverage),
		})
	}
	return positions, nil
}
