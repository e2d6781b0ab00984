package hyperliquid

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"xconnect/config"
	"xconnect/contracts"
	"xconnect/kernel"
	"xconnect/telemetry"
	"xconnect/types"
	"xconnect/xerrors"
)

const (
	venueName       = "hyperliquid"
	defaultRESTBase = "https://api.hyperliquid.xyz"
	testnetRESTBase = "https://api.hyperliquid-testnet.xyz"
	defaultWSBase   = "wss://api.hyperliquid.xyz/ws"
	testnetWSBase   = "wss://api.hyperliquid-testnet.xyz/ws"
)

// Connector implements contracts.Connector for Hyperliquid. Every read
// goes through POST /info with a {"type": ...} discriminated body;
// every write goes through POST /exchange with a kernel.SignedAction
// envelope. There is no per-request HTTP signature: kernel.RESTClient is
// constructed with a nil Signer, and c.signer.SignAction is invoked
// directly when building a write body.
type Connector struct {
	cfg    config.ExchangeConfig
	rest   *kernel.RESTClient
	signer *kernel.HyperliquidSigner
	wsURL  string

	ws *kernel.ReconnectingSession

	mu         sync.Mutex
	assetIndex map[string]int
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

	var signer *kernel.HyperliquidSigner
	if cfg.HasCredentials() {
		s, err := kernel.NewHyperliquidSigner(cfg.SecretKey.Expose())
		if err == nil {
			signer = s
		} else {
			telemetry.Logger.Error().Err(err).Str("venue", venueName).Msg("failed to construct Hyperliquid signer")
		}
	}

	rest := kernel.NewRESTClient(venueName, baseURL, cfg.Timeout, nil, kernel.RetryPolicy{
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBaseWait,
	})

	return &Connector{cfg: cfg, rest: rest, signer: signer, wsURL: wsURL, assetIndex: make(map[string]int)}
}

func (c *Connector) Name() string            { return venueName }
func (c *Connector) HasCredentials() bool    { return c.signer != nil }
func (c *Connector) GetWebSocketURL() string { return c.wsURL }

// --- Market data -------------------------------------------------------------

type infoRequest struct {
	Type string `json:"type"`
	Req  any    `json:"req,omitempty"`
	User string `json:"user,omitempty"`
}

type assetInfo struct {
	Name         string `json:"name"`
	SzDecimals   int    `json:"szDecimals"`
	MaxLeverage  int    `json:"maxLeverage"`
	OnlyIsolated bool   `json:"onlyIsolated"`
	IsDelisted   bool   `json:"isDelisted"`
}

type metaResponse struct {
	Universe []assetInfo `json:"universe"`
}

func (c *Connector) GetMarkets(ctx context.Context) ([]types.Market, error) {
	meta, err := kernel.PostJSON[metaResponse](ctx, c.rest, "/info", nil, infoRequest{Type: "meta"}, false)
	if err != nil {
		return nil, err
	}

	c.cacheAssetIndex(meta.Universe)

	markets := make([]types.Market, 0, len(meta.Universe))
	for _, a := range meta.Universe {
		if a.IsDelisted {
			continue
		}
		markets = append(markets, types.Market{
			Symbol:         coinToSymbol(a.Name),
			Status:         types.MarketStatusTrading,
			BasePrecision:  int32(a.SzDecimals),
			QuotePrecision: 6,
		})
	}
	return markets, nil
}

func (c *Connector) cacheAssetIndex(universe []assetInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, a := range universe {
		c.assetIndex[a.Name] = i
	}
}

func (c *Connector) assetIndexFor(ctx context.Context, coin string) (int, error) {
	c.mu.Lock()
	idx, ok := c.assetIndex[coin]
	c.mu.Unlock()
	if ok {
		return idx, nil
	}

	if _, err := c.GetMarkets(ctx); err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	idx, ok = c.assetIndex[coin]
	if !ok {
		return 0, xerrors.New(xerrors.KindInvalidParameters, venueName, fmt.Sprintf("unknown asset %q", coin))
	}
	return idx, nil
}

type candleSnapshotReq struct {
	Coin      string `json:"coin"`
	Interval  string `json:"interval"`
	StartTime int64  `json:"startTime"`
	EndTime   int64  `json:"endTime"`
}

type candleRow struct {
	T    int64  `json:"t"`
	TEnd int64  `json:"T"`
	O    string `json:"o"`
	H    string `json:"h"`
	L    string `json:"l"`
	C    string `json:"c"`
	V    string `json:"v"`
}

func (c *Connector) GetKlines(ctx context.Context, symbol types.Symbol, interval types.KlineInterval, limit int) ([]types.Kline, error) {
	if limit <= 0 {
		limit = 500
	}
	step := interval.Milliseconds()
	if step == 0 {
		step = 60_000
	}
	end := time.Now().UnixMilli()
	start := end - int64(limit)*step

	req := infoRequest{
		Type: "candleSnapshot",
		Req: candleSnapshotReq{
			Coin:      symbol.Native,
			Interval:  intervalToWire(interval),
			StartTime: start,
			EndTime:   end,
		},
	}

	rows, err := kernel.PostJSON[[]candleRow](ctx, c.rest, "/info", nil, req, false)
	if err != nil {
		return nil, err
	}

	klines := make([]types.Kline, 0, len(rows))
	for _, row := range rows {
		closeTime := row.TEnd
		if closeTime <= row.T {
			closeTime = row.T + step
		}
		k := types.Kline{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  row.T,
			CloseTime: closeTime,
			Open:      mustDecimal(row.O),
			High:      mustDecimal(row.H),
			Low:       mustDecimal(row.L),
			Close:     mustDecimal(row.C),
			Volume:    mustDecimal(row.V),
			Final:     true,
		}
		if err := k.Validate(); err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}
	if limit > 0 && len(klines) > limit {
		klines = klines[len(klines)-limit:]
	}
	return klines, nil
}

func (c *Connector) SubscribeMarketData(ctx context.Context, subs []contracts.Subscription) (<-chan contracts.MarketDataEvent, error) {
	streams := make([]string, 0, len(subs))
	for _, sub := range subs {
		switch sub.Type {
		case contracts.SubscribeTicker:
			streams = append(streams, TickerSubscription(sub.Symbol.Native))
		case contracts.SubscribeOrderBook:
			streams = append(streams, DepthSubscription(sub.Symbol.Native))
		case contracts.SubscribeTrade:
			streams = append(streams, TradeSubscription(sub.Symbol.Native))
		case contracts.SubscribeKline:
			streams = append(streams, KlineSubscription(sub.Symbol.Native, intervalToWire(sub.Interval)))
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
			for _, event := range toMarketDataEvents(msg) {
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

func toMarketDataEvents(msg any) []contracts.MarketDataEvent {
	m, ok := msg.(*Message)
	if !ok || m == nil {
		return nil
	}

	switch m.Kind {
	case KindTicker:
		events := make([]contracts.MarketDataEvent, 0, len(m.Ticker.Mids))
		for coin, mid := range m.Ticker.Mids {
			price := mustDecimal(mid)
			events = append(events, contracts.MarketDataEvent{Type: contracts.EventTicker, Ticker: &types.Ticker{
				Symbol: coinToSymbol(coin), LastPrice: price,
			}})
		}
		return events
	case KindOrderBook:
		ob := m.OrderBook
		bids, asks := []bookLevel{}, []bookLevel{}
		if len(ob.Levels) > 0 {
			bids = ob.Levels[0]
		}
		if len(ob.Levels) > 1 {
			asks = ob.Levels[1]
		}
		return []contracts.MarketDataEvent{{Type: contracts.EventOrderBook, OrderBook: &types.OrderBook{
			Symbol: coinToSymbol(ob.Coin), Bids: parseBookLevels(bids), Asks: parseBookLevels(asks), LastUpdateID: ob.Time,
		}}}
	case KindTrade:
		events := make([]contracts.MarketDataEvent, 0, len(m.Trade.entries))
		for _, tr := range m.Trade.entries {
			events = append(events, contracts.MarketDataEvent{Type: contracts.EventTrade, Trade: &types.Trade{
				Symbol: coinToSymbol(tr.Coin), TradeID: strconv.FormatInt(tr.Tid, 10), Price: mustDecimal(tr.Px),
				Quantity: mustDecimal(tr.Sz), Timestamp: tr.Time, IsBuyerMaker: tr.Side == "A",
			}})
		}
		return events
	case KindKline:
		kl := m.Kline
		return []contracts.MarketDataEvent{{Type: contracts.EventKline, Kline: &types.Kline{
			Symbol: coinToSymbol(kl.Symbol), Interval: types.KlineInterval(kl.Interval), OpenTime: kl.StartTime, CloseTime: kl.EndTime,
			Open: mustDecimal(kl.Open), High: mustDecimal(kl.High), Low: mustDecimal(kl.Low), Close: mustDecimal(kl.Close),
			Volume: mustDecimal(kl.Volume),
		}}}
	default:
		return nil
	}
}

// --- Funding rates -------------------------------------------------------------

type assetCtx struct {
	Funding  string `json:"funding"`
	MarkPx   string `json:"markPx"`
	MidPx    string `json:"midPx"`
	OpenInt  string `json:"openInterest"`
}

func (c *Connector) GetFundingRate(ctx context.Context, symbol types.Symbol) (types.FundingRate, error) {
	idx, err := c.assetIndexFor(ctx, symbol.Native)
	if err != nil {
		return types.FundingRate{}, err
	}

	raw, err := kernel.PostJSON[[2]interface{}](ctx, c.rest, "/info", nil, infoRequest{Type: "metaAndAssetCtxs"}, false)
	if err != nil {
		return types.FundingRate{}, err
	}

	ctxs, ok := raw[1].([]interface{})
	if !ok || idx >= len(ctxs) {
		return types.FundingRate{}, xerrors.New(xerrors.KindInvalidResponseFormat, venueName, "malformed metaAndAssetCtxs response")
	}

	ctxBytes, err := toAssetCtx(ctxs[idx])
	if err != nil {
		return types.FundingRate{}, err
	}

	rate := types.FundingRate{Symbol: symbol, Rate: mustDecimal(ctxBytes.Funding)}
	if mp := mustDecimal(ctxBytes.MarkPx); !mp.IsZero() {
		rate.MarkPrice = &mp
	}
	if ip := mustDecimal(ctxBytes.MidPx); !ip.IsZero() {
		rate.IndexPrice = &ip
	}
	return rate, nil
}

// --- Trading -------------------------------------------------------------------

type limitOrderType struct {
	Limit struct {
		Tif string `json:"tif"`
	} `json:"limit"`
}

type orderPayload struct {
	Asset      int            `json:"a"`
	IsBuy      bool           `json:"b"`
	Price      string         `json:"p"`
	Size       string         `json:"s"`
	ReduceOnly bool           `json:"r"`
	OrderType  limitOrderType `json:"t"`
	ClientID   string         `json:"c,omitempty"`
}

type orderAction struct {
	Type     string         `json:"type"`
	Orders   []orderPayload `json:"orders"`
	Grouping string         `json:"grouping"`
}

type cancelPayload struct {
	Asset int   `json:"a"`
	OID   int64 `json:"o"`
}

type cancelAction struct {
	Type    string          `json:"type"`
	Cancels []cancelPayload `json:"cancels"`
}

type exchangeStatus struct {
	Status string `json:"status"`
	Response struct {
		Type string `json:"type"`
		Data struct {
			Statuses []struct {
				Resting *struct {
					OID int64 `json:"oid"`
				} `json:"resting"`
				Filled *struct {
					OID int64 `json:"oid"`
				} `json:"filled"`
				Error string `json:"error"`
			} `json:"statuses"`
		} `json:"data"`
	} `json:"response"`
}

func (c *Connector) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResponse, error) {
	if !c.HasCredentials() {
		return types.OrderResponse{}, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}
	if err := req.Validate(); err != nil {
		return types.OrderResponse{}, err
	}

	asset, err := c.assetIndexFor(ctx, req.Symbol.Native)
	if err != nil {
		return types.OrderResponse{}, err
	}

	price := "0"
	tif := "Gtc"
	switch req.Type {
	case types.Market:
		if req.Side == types.Buy {
			price = "999999999"
		} else {
			price = "0.000001"
		}
		tif = "Ioc"
	default:
		if req.Price != nil {
			price = formatDecimal(*req.Price)
		}
		if req.TimeInForce != nil {
			switch *req.TimeInForce {
			case types.IOC, types.FOK:
				tif = "Ioc"
			default:
				tif = "Gtc"
			}
		}
	}

	payload := orderPayload{Asset: asset, IsBuy: req.Side == types.Buy, Price: price, Size: formatDecimal(req.Quantity), ClientID: req.ClientOrderID}
	payload.OrderType.Limit.Tif = tif

	action := orderAction{Type: "order", Orders: []orderPayload{payload}, Grouping: "na"}
	nonce := c.signer.NextNonce(time.Now())
	signed, err := c.signer.SignAction(action, nonce, "", !c.cfg.Testnet)
	if err != nil {
		return types.OrderResponse{}, xerrors.New(xerrors.KindSerializationError, venueName, err.Error())
	}

	resp, err := kernel.PostJSON[exchangeStatus](ctx, c.rest, "/exchange", nil, signed, false)
	if err != nil {
		return types.OrderResponse{}, err
	}
	if resp.Status != "ok" {
		return types.OrderResponse{}, xerrors.New(xerrors.KindAPIError, venueName, "order rejected")
	}

	orderID := "0"
	status := "NEW"
	if len(resp.Response.Data.Statuses) > 0 {
		st := resp.Response.Data.Statuses[0]
		switch {
		case st.Resting != nil:
			orderID = strconv.FormatInt(st.Resting.OID, 10)
		case st.Filled != nil:
			orderID = strconv.FormatInt(st.Filled.OID, 10)
			status = "FILLED"
		case st.Error != "":
			return types.OrderResponse{}, xerrors.New(xerrors.KindAPIError, venueName, st.Error)
		}
	}

	return types.OrderResponse{
		OrderID:       orderID,
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Status:        status,
		Timestamp:     nonce,
	}, nil
}

func (c *Connector) CancelOrder(ctx context.Context, symbol types.Symbol, orderID string) error {
	if !c.HasCredentials() {
		return xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}

	asset, err := c.assetIndexFor(ctx, symbol.Native)
	if err != nil {
		return err
	}
	oid, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return xerrors.New(xerrors.KindInvalidParameters, venueName, "invalid order id")
	}

	action := cancelAction{Type: "cancel", Cancels: []cancelPayload{{Asset: asset, OID: oid}}}
	nonce := c.signer.NextNonce(time.Now())
	signed, err := c.signer.SignAction(action, nonce, "", !c.cfg.Testnet)
	if err != nil {
		return xerrors.New(xerrors.KindSerializationError, venueName, err.Error())
	}

	resp, err := kernel.PostJSON[exchangeStatus](ctx, c.rest, "/exchange", nil, signed, false)
	if err != nil {
		return err
	}
	if resp.Status != "ok" {
		return xerrors.New(xerrors.KindAPIError, venueName, "cancel rejected")
	}
	return nil
}

// --- Account ---------------------------------------------------------------

type marginSummary struct {
	AccountValue string `json:"accountValue"`
}

type assetPosition struct {
	Position struct {
		Coin             string `json:"coin"`
		Szi              string `json:"szi"`
		EntryPx          string `json:"entryPx"`
		UnrealizedPnl    string `json:"unrealizedPnl"`
		Leverage         struct {
			Value int `json:"value"`
		} `json:"leverage"`
		LiquidationPx *string `json:"liquidationPx"`
	} `json:"position"`
}

type clearinghouseState struct {
	MarginSummary     marginSummary   `json:"marginSummary"`
	AssetPositions    []assetPosition `json:"assetPositions"`
	Withdrawable      string          `json:"withdrawable"`
}

func (c *Connector) getClearinghouseState(ctx context.Context) (clearinghouseState, error) {
	return kernel.PostJSON[clearinghouseState](ctx, c.rest, "/info", nil, infoRequest{Type: "clearinghouseState", User: c.signer.Address()}, false)
}

func (c *Connector) GetAccountBalance(ctx context.Context) ([]types.Balance, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	state, err := c.getClearinghouseState(ctx)
	if err != nil {
		return nil, err
	}

	return []types.Balance{{
		Asset:  "USDC",
		Free:   mustDecimal(state.Withdrawable),
		Locked: mustDecimal(state.MarginSummary.AccountValue).Sub(mustDecimal(state.Withdrawable)),
	}}, nil
}

func (c *Connector) GetPositions(ctx context.Context) ([]types.Position, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	state, err := c.getClearinghouseState(ctx)
	if err != nil {
		return nil, err
	}

	positions := make([]types.Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		size := mustDecimal(ap.Position.Szi)
		if size.IsZero() {
			continue
		}
		pos := types.Position{
			Symbol:        coinToSymbol(ap.Position.Coin),
			Side:          positionSideFromSize(size),
			EntryPrice:    mustDecimal(ap.Position.EntryPx),
			Amount:        size,
			UnrealizedPnL: mustDecimal(ap.Position.UnrealizedPnl),
			Leverage:      decimal.NewFromInt(int64(ap.Position.Leverage.Value)),
		}
		if ap.Position.LiquidationPx != nil {
			liq := mustDecimal(*ap.Position.LiquidationPx)
			pos.LiquidationPrice = &liq
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

func toAssetCtx(v interface{}) (assetCtx, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return assetCtx{}, xerrors.New(xerrors.KindInvalidResponseFormat, venueName, "malformed asset context entry")
	}
	get := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	return assetCtx{Funding: get("funding"), MarkPx: get("markPx"), MidPx: get("midPx"), OpenInt: get("openInterest")}, nil
}
