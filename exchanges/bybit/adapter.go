package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"xconnect/config"
	"xconnect/contracts"
	"xconnect/kernel"
	"xconnect/telemetry"
	"xconnect/types"
	"xconnect/xerrors"
)

const (
	venueName       = "bybit"
	defaultRESTBase = "https://api.bybit.com"
	defaultWSBase   = "wss://stream.bybit.com/v5/public/spot"
	testnetWSBase   = "wss://stream-testnet.bybit.com/v5/public/spot"
	testnetRESTBase = "https://api-testnet.bybit.com"
	category        = "spot"
)

// Connector implements contracts.Connector for Bybit's V5 unified API,
// spot category. The REST envelope ({retCode, retMsg, result}) is
// common to every Bybit category; Trading/Account bodies go over
// kernel.RESTClient with category="spot" pinned in the request.
type Connector struct {
	cfg    config.ExchangeConfig
	rest   *kernel.RESTClient
	signer *kernel.HMACSigner
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

	var signer *kernel.HMACSigner
	if cfg.HasCredentials() {
		signer = kernel.NewHMACSigner(cfg.APIKey, cfg.SecretKey.Expose(), kernel.HMACVariantBybitV5)
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

// apiEnvelope is Bybit V5's {retCode, retMsg, result} wrapper, common to
// every endpoint regardless of category.
type apiEnvelope[T any] struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  T      `json:"result"`
}

func checkEnvelope[T any](env apiEnvelope[T]) error {
	if env.RetCode != 0 {
		return xerrors.New(xerrors.KindAPIError, venueName, fmt.Sprintf("%d: %s", env.RetCode, env.RetMsg))
	}
	return nil
}

type instrumentInfo struct {
	Symbol    string `json:"symbol"`
	Status    string `json:"status"`
	BaseCoin  string `json:"baseCoin"`
	QuoteCoin string `json:"quoteCoin"`
	LotSizeFilter struct {
		BasePrecision string `json:"basePrecision"`
		MinOrderQty   string `json:"minOrderQty"`
		MaxOrderQty   string `json:"maxOrderQty"`
	} `json:"lotSizeFilter"`
	PriceFilter struct {
		TickSize string `json:"tickSize"`
	} `json:"priceFilter"`
}

type instrumentsResult struct {
	Category string            `json:"category"`
	List     []instrumentInfo `json:"list"`
}

func (c *Connector) GetMarkets(ctx context.Context) ([]types.Market, error) {
	query := url.Values{}
	query.Set("category", category)

	env, err := kernel.GetJSON[apiEnvelope[instrumentsResult]](ctx, c.rest, "/v5/market/instruments-info", query, false)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(env); err != nil {
		return nil, err
	}

	markets := make([]types.Market, 0, len(env.Result.List))
	for _, s := range env.Result.List {
		m := types.Market{
			Symbol:         types.Symbol{Base: s.BaseCoin, Quote: s.QuoteCoin, Native: s.Symbol},
			Status:         mapMarketStatus(s.Status),
			BasePrecision:  8,
			QuotePrecision: 8,
		}
		if d := mustDecimal(s.LotSizeFilter.MinOrderQty); !d.IsZero() {
			m.MinQty = &d
		}
		if d := mustDecimal(s.LotSizeFilter.MaxOrderQty); !d.IsZero() {
			m.MaxQty = &d
		}
		if d := mustDecimal(s.PriceFilter.TickSize); !d.IsZero() {
			m.MinPrice = &d
		}
		markets = append(markets, m)
	}
	return markets, nil
}

func mapMarketStatus(s string) types.MarketStatus {
	switch s {
	case "Trading":
		return types.MarketStatusTrading
	case "PreLaunch", "Settling":
		return types.MarketStatusBreak
	case "Closed", "Delivering":
		return types.MarketStatusHalted
	default:
		return types.MarketStatusUnknown
	}
}

type klineResult struct {
	Category string      `json:"category"`
	Symbol   string      `json:"symbol"`
	List     [][7]string `json:"list"`
}

func (c *Connector) GetKlines(ctx context.Context, symbol types.Symbol, interval types.KlineInterval, limit int) ([]types.Kline, error) {
	query := url.Values{}
	query.Set("category", category)
	query.Set("symbol", symbol.Native)
	query.Set("interval", intervalToWire(interval))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	env, err := kernel.GetJSON[apiEnvelope[klineResult]](ctx, c.rest, "/v5/market/kline", query, false)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(env); err != nil {
		return nil, err
	}

	klines := make([]types.Kline, 0, len(env.Result.List))
	for _, row := range env.Result.List {
		openTime, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, xerrors.New(xerrors.KindInvalidResponseFormat, venueName, "malformed kline start time")
		}
		step := interval.Milliseconds()
		if step == 0 {
			step = 60_000
		}
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
			Final:     true,
		}
		if err := k.Validate(); err != nil {
			return nil, err
		}
		klines = append(klines, k)
	}
	return klines, nil
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
		t := m.Ticker
		return []contracts.MarketDataEvent{{Type: contracts.EventTicker, Ticker: &types.Ticker{
			Symbol: symbolFromNative(t.Symbol), LastPrice: mustDecimal(t.LastPrice), HighPrice: mustDecimal(t.HighPrice24h),
			LowPrice: mustDecimal(t.LowPrice24h), Volume: mustDecimal(t.Volume24h), PriceChangePercent: mustDecimal(t.Price24hPcnt),
		}}}
	case KindOrderBook:
		ob := m.OrderBook
		return []contracts.MarketDataEvent{{Type: contracts.EventOrderBook, OrderBook: &types.OrderBook{
			Symbol: symbolFromNative(ob.Symbol), Bids: parseLevels(ob.Bids), Asks: parseLevels(ob.Asks), LastUpdateID: ob.Seq,
		}}}
	case KindTrade:
		events := make([]contracts.MarketDataEvent, 0, len(m.Trade.entries))
		for _, tr := range m.Trade.entries {
			events = append(events, contracts.MarketDataEvent{Type: contracts.EventTrade, Trade: &types.Trade{
				Symbol: symbolFromNative(tr.Symbol), TradeID: tr.TradeID, Price: mustDecimal(tr.Price),
				Quantity: mustDecimal(tr.Size), Timestamp: tr.Timestamp, IsBuyerMaker: tr.Side == "Sell",
			}})
		}
		return events
	case KindKline:
		events := make([]contracts.MarketDataEvent, 0, len(m.Kline.entries))
		for _, kl := range m.Kline.entries {
			events = append(events, contracts.MarketDataEvent{Type: contracts.EventKline, Kline: &types.Kline{
				Interval: types.KlineInterval(kl.Interval), OpenTime: kl.Start, CloseTime: kl.End,
				Open: mustDecimal(kl.Open), High: mustDecimal(kl.High), Low: mustDecimal(kl.Low), Close: mustDecimal(kl.Close),
				Volume: mustDecimal(kl.Volume), Final: kl.Confirm,
			}})
		}
		return events
	default:
		return nil
	}
}

// --- Trading ------------------------------------------------------------

type orderRequestBody struct {
	Category    string `json:"category"`
	Symbol      string `json:"symbol"`
	Side        string `json:"side"`
	OrderType   string `json:"orderType"`
	Qty         string `json:"qty"`
	Price       string `json:"price,omitempty"`
	TimeInForce string `json:"timeInForce,omitempty"`
	OrderLinkID string `json:"orderLinkId,omitempty"`
}

type orderResult struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
}

func (c *Connector) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.OrderResponse, error) {
	if !c.HasCredentials() {
		return types.OrderResponse{}, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}
	if err := req.Validate(); err != nil {
		return types.OrderResponse{}, err
	}

	body := orderRequestBody{
		Category:    category,
		Symbol:      req.Symbol.Native,
		Side:        sideToWire(req.Side),
		OrderType:   orderTypeToWire(req.Type),
		Qty:         formatDecimal(req.Quantity),
		OrderLinkID: req.ClientOrderID,
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

	env, err := kernel.PostJSON[apiEnvelope[orderResult]](ctx, c.rest, "/v5/order/create", nil, body, true)
	if err != nil {
		return types.OrderResponse{}, err
	}
	if err := checkEnvelope(env); err != nil {
		return types.OrderResponse{}, err
	}

	return types.OrderResponse{
		OrderID:       env.Result.OrderID,
		ClientOrderID: env.Result.OrderLinkID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		Quantity:      req.Quantity,
		Price:         req.Price,
		Status:        "New",
	}, nil
}

func (c *Connector) CancelOrder(ctx context.Context, symbol types.Symbol, orderID string) error {
	if !c.HasCredentials() {
		return xerrors.New(xerrors.KindAuthenticationRequired, venueName, "trading requires credentials")
	}

	body := map[string]string{"category": category, "symbol": symbol.Native, "orderId": orderID}

	env, err := kernel.PostJSON[apiEnvelope[json.RawMessage]](ctx, c.rest, "/v5/order/cancel", nil, body, true)
	if err != nil {
		return err
	}
	return checkEnvelope(env)
}

// --- Account --------------------------------------------------------------

type coinBalance struct {
	Coin                string `json:"coin"`
	WalletBalance       string `json:"walletBalance"`
	Locked              string `json:"locked"`
	AvailableToWithdraw string `json:"availableToWithdraw"`
}

type accountList struct {
	AccountType string        `json:"accountType"`
	Coin        []coinBalance `json:"coin"`
}

type walletBalanceResult struct {
	List []accountList `json:"list"`
}

func (c *Connector) GetAccountBalance(ctx context.Context) ([]types.Balance, error) {
	if !c.HasCredentials() {
		return nil, xerrors.New(xerrors.KindAuthenticationRequired, venueName, "account queries require credentials")
	}

	query := url.Values{}
	query.Set("accountType", "UNIFIED")

	env, err := kernel.GetJSON[apiEnvelope[walletBalanceResult]](ctx, c.rest, "/v5/account/wallet-balance", query, true)
	if err != nil {
		return nil, err
	}
	if err := checkEnvelope(env); err != nil {
		return nil, err
	}

	balances := make([]types.Balance, 0)
	for _, list := range env.Result.List {
		for _, coin := range list.Coin {
			wallet := mustDecimal(coin.WalletBalance)
			if wallet.IsZero() {
				continue
			}
			balances = append(balances, types.Balance{
				Asset:  coin.Coin,
				Free:   mustDecimal(coin.AvailableToWithdraw),
				Locked: mustDecimal(coin.Locked),
			})
		}
	}
	return balances, nil
}

// GetPositions returns an empty slice: spot accounts carry no positions.
func (c *Connector) GetPositions(ctx context.Context) ([]types.Position, error) {
	return []types.Position{}, nil
}
