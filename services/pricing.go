package services

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type latestTradeClient interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// AlpacaPriceSource marks positions to the latest Alpaca trade
type AlpacaPriceSource struct {
	client latestTradeClient
	logger *logrus.Logger
}

func NewAlpacaPriceSource(apiKey, apiSecret string, logger *logrus.Logger) *AlpacaPriceSource {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	client := marketdata.NewClient(marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	})
	return &AlpacaPriceSource{client: client, logger: logger}
}

func (p *AlpacaPriceSource) LatestPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	trade, err := p.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get latest trade for %s: %w", symbol, err)
	}
	if trade == nil || trade.Price <= 0 {
		return decimal.Zero, fmt.Errorf("no trade price for %s", symbol)
	}

	p.logger.WithFields(logrus.Fields{
		"symbol": symbol,
		"price":  trade.Price,
	}).Debug("Fetched latest trade")

	return decimal.NewFromFloat(trade.Price), nil
}
