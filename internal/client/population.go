package client

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/weathernow/internal/models"
)

// PopulationClient fetches population history from api-ninjas.
type PopulationClient struct {
	ep *endpoint
}

// NewPopulationClient creates a PopulationClient.
func NewPopulationClient(opts Options) (*PopulationClient, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultPopulationURL
	}
	ep, err := newEndpoint(ProviderPopulation, opts)
	if err != nil {
		return nil, err
	}
	return &PopulationClient{ep: ep}, nil
}

// Population returns the population history for the country. A successful reply with
// no history yields an empty list; a failed source yields models.PopulationUnavailable.
func (c *PopulationClient) Population(ctx context.Context, name string) (models.Population, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Population{}, fmt.Errorf("population: %w", ErrMissingCountry)
	}

	var p models.Population
	if err := c.ep.getJSON(ctx, url.Values{"country": {name}}, apiKeyHeader(c.ep.apiKey), &p); err != nil {
		c.ep.sourceFailed(ctx, name, err)
		return models.PopulationUnavailable(), nil
	}
	if p.HistoricalPopulation == nil {
		c.ep.logger.Info("no population history", zap.String("input", name))
		p.HistoricalPopulation = []models.PopulationYear{}
	}
	return p, nil
}
