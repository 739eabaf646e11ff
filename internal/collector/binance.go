package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"CryptoSentinel/internal/model"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
)

// binanceInvalidSymbol is the API code for an unknown trading pair.
const binanceInvalidSymbol = -1121

// BinanceFetcher implements Fetcher against the Binance spot REST API.
type BinanceFetcher struct {
	client *binance.Client
}

// NewBinanceFetcher creates a fetcher with optional proxy support.
// Empty keys are fine for the public market-data endpoints used here.
func NewBinanceFetcher(apiKey, secretKey, baseURL, proxyURL string, timeout time.Duration) *BinanceFetcher {
	client := binance.NewClient(apiKey, secretKey)
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client.HTTPClient = &http.Client{Timeout: timeout, Transport: transport}
	if baseURL != "" {
		client.BaseURL = baseURL
	}
	return &BinanceFetcher{client: client}
}

func (f *BinanceFetcher) Name() string { return "binance" }

// Symbol maps "BTC/USDT" to the exchange symbol "BTCUSDT".
func Symbol(pair string) string {
	return strings.ToUpper(strings.ReplaceAll(pair, "/", ""))
}

func (f *BinanceFetcher) FetchBars(ctx context.Context, pair string, tf model.Timeframe, limit int) ([]model.Bar, error) {
	klines, err := f.client.NewKlinesService().
		Symbol(Symbol(pair)).
		Interval(string(tf)).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, wrapBinanceError(err, "fetch klines "+pair+" "+string(tf))
	}
	if len(klines) == 0 {
		return nil, fmt.Errorf("fetch klines %s %s: %w", pair, tf, ErrNoData)
	}

	bars := make([]model.Bar, 0, len(klines))
	for _, k := range klines {
		bar, err := translateKline(k)
		if err != nil {
			return nil, fmt.Errorf("translate kline %s %s: %w", pair, tf, err)
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

func (f *BinanceFetcher) FetchLastPrice(ctx context.Context, pair string) (float64, error) {
	prices, err := f.client.NewListPricesService().Symbol(Symbol(pair)).Do(ctx)
	if err != nil {
		return 0, wrapBinanceError(err, "fetch price "+pair)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("fetch price %s: %w", pair, ErrNoData)
	}
	price, err := strconv.ParseFloat(prices[0].Price, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %s: %w", pair, err)
	}
	return price, nil
}

func (f *BinanceFetcher) Ping(ctx context.Context) error {
	if err := f.client.NewPingService().Do(ctx); err != nil {
		return wrapBinanceError(err, "ping")
	}
	return nil
}

func translateKline(k *binance.Kline) (model.Bar, error) {
	vals := [5]float64{}
	for i, s := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.Bar{}, err
		}
		vals[i] = v
	}
	return model.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

func wrapBinanceError(err error, op string) error {
	var apiErr *common.APIError
	if errors.As(err, &apiErr) && apiErr.Code == binanceInvalidSymbol {
		return fmt.Errorf("%s: %w: %s", op, ErrUnknownPair, apiErr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
