package services

import (
	"context"
	"fmt"

	"github.com/codyseavey/vinyl-exchange/internal/models"
)

const discogsDefaultBaseURL = "https://api.discogs.com"

// DiscogsClient reads marketplace statistics and price suggestions from Discogs
type DiscogsClient struct {
	*marketClient
	token string
}

type discogsPrice struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// discogsStatsResponse is /marketplace/stats/{release_id}
type discogsStatsResponse struct {
	LowestPrice *discogsPrice `json:"lowest_price"`
	NumForSale  int           `json:"num_for_sale"`
	Blocked     bool          `json:"blocked_from_sale"`
}

// discogsSuggestionsResponse is /marketplace/price_suggestions/{release_id}, keyed by grade
type discogsSuggestionsResponse map[string]discogsPrice

func NewDiscogsClient(token string, opts MarketClientOptions) *DiscogsClient {
	if opts.BaseURL == "" {
		opts.BaseURL = discogsDefaultBaseURL
	}
	c := &DiscogsClient{
		marketClient: newMarketClient(models.MarketSourceDiscogs, opts),
		token:        token,
	}
	if token != "" {
		c.client.SetHeader("Authorization", "Discogs token="+token)
	}
	return c
}

func (c *DiscogsClient) Source() models.MarketSource {
	return models.MarketSourceDiscogs
}

// FetchStats combines the lowest listing with the per-grade price suggestions.
// Low is the lowest current listing, median and high come from the suggestions.
func (c *DiscogsClient) FetchStats(ctx context.Context, release *models.Release) (*models.MarketStats, error) {
	if release.DiscogsReleaseID == "" {
		return nil, fmt.Errorf("release %s has no discogs release id", release.ID)
	}

	var stats discogsStatsResponse
	if err := c.get(ctx, "/marketplace/stats/"+release.DiscogsReleaseID, map[string]string{"curr_abbr": "USD"}, &stats); err != nil {
		return nil, err
	}

	var prices []float64
	if c.token != "" {
		var suggestions discogsSuggestionsResponse
		if err := c.get(ctx, "/marketplace/price_suggestions/"+release.DiscogsReleaseID, nil, &suggestions); err != nil {
			return nil, err
		}
		for _, s := range suggestions {
			prices = append(prices, s.Value)
		}
	}

	result := summarizePrices(prices)
	if stats.LowestPrice != nil && stats.LowestPrice.Value > 0 {
		low := stats.LowestPrice.Value
		if result == nil {
			result = &models.MarketStats{}
		}
		result.StatLow = &low
	}
	return result, nil
}
