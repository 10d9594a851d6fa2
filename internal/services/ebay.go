package services

import (
	"context"
	"math"
	"strconv"

	"github.com/codyseavey/vinyl-exchange/internal/models"
)

const (
	ebayDefaultBaseURL = "https://api.ebay.com"
	// ebayRecordsCategory is Music > Vinyl Records
	ebayRecordsCategory = "176985"
	ebaySearchLimit     = "50"
)

// EbayClient summarizes current eBay listings for a release via the Browse API
type EbayClient struct {
	*marketClient
}

type ebaySearchResponse struct {
	Total         int `json:"total"`
	ItemSummaries []struct {
		Title string `json:"title"`
		Price struct {
			Value    string `json:"value"`
			Currency string `json:"currency"`
		} `json:"price"`
	} `json:"itemSummaries"`
}

func NewEbayClient(token string, opts MarketClientOptions) *EbayClient {
	if opts.BaseURL == "" {
		opts.BaseURL = ebayDefaultBaseURL
	}
	c := &EbayClient{
		marketClient: newMarketClient(models.MarketSourceEbay, opts),
	}
	if token != "" {
		c.client.SetAuthToken(token)
	}
	c.client.SetHeader("X-EBAY-C-MARKETPLACE-ID", "EBAY_US")
	return c
}

func (c *EbayClient) Source() models.MarketSource {
	return models.MarketSourceEbay
}

// FetchStats searches active listings by artist/title and returns low/median/high of USD prices
func (c *EbayClient) FetchStats(ctx context.Context, release *models.Release) (*models.MarketStats, error) {
	var resp ebaySearchResponse
	query := map[string]string{
		"q":            release.SearchQuery(),
		"category_ids": ebayRecordsCategory,
		"limit":        ebaySearchLimit,
	}
	if err := c.get(ctx, "/buy/browse/v1/item_summary/search", query, &resp); err != nil {
		return nil, err
	}

	var prices []float64
	for _, item := range resp.ItemSummaries {
		if item.Price.Currency != "" && item.Price.Currency != "USD" {
			continue
		}
		v, err := strconv.ParseFloat(item.Price.Value, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		prices = append(prices, v)
	}
	return summarizePrices(prices), nil
}
