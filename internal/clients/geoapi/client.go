// Package geoapi queries the French national geographic index
// (geo.api.gouv.fr) for regions, departments and communes.
package geoapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/common/httpclient"
	"jobsearch-api/internal/common/logger"
)

const minQueryLength = 2

// Candidate is one geographic match, ordered by upstream relevance.
type Candidate struct {
	Nom         string     `json:"nom"`
	Code        string     `json:"code"`
	Departement *ParentRef `json:"departement,omitempty"`
	Region      *ParentRef `json:"region,omitempty"`
}

// ParentRef is the enclosing department or region of a commune.
type ParentRef struct {
	Code string `json:"code"`
	Nom  string `json:"nom"`
}

type Client struct {
	baseURL string
	client  *httpclient.Client
	logger  logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		client:  httpclient.NewClient(timeout),
		logger:  log.WithFields(map[string]interface{}{"component": "geoapi"}),
	}
}

// SearchRegions looks up regions by name.
func (c *Client) SearchRegions(ctx context.Context, name string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("nom", name)
	params.Set("fields", "nom,code")
	params.Set("limit", "10")
	return c.search(ctx, "/regions", name, params)
}

// SearchDepartments looks up departments by name.
func (c *Client) SearchDepartments(ctx context.Context, name string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("nom", name)
	params.Set("fields", "nom,code")
	params.Set("limit", "10")
	return c.search(ctx, "/departements", name, params)
}

// SearchCommunes looks up communes by name, most populous first, so the
// first candidate is the place a user most likely means.
func (c *Client) SearchCommunes(ctx context.Context, name string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("nom", name)
	params.Set("fields", "nom,code,codesPostaux,departement,region")
	params.Set("boost", "population")
	params.Set("limit", "10")
	return c.search(ctx, "/communes", name, params)
}

func (c *Client) search(ctx context.Context, path, name string, params url.Values) ([]Candidate, error) {
	if len(name) < minQueryLength {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewExternalServiceError("geo-api", fmt.Errorf("status %d for %s", resp.StatusCode, path))
	}

	var candidates []Candidate
	if err := json.NewDecoder(resp.Body).Decode(&candidates); err != nil {
		return nil, err
	}

	c.logger.Debug("geo lookup completed", map[string]interface{}{
		"path":           path,
		"query":          name,
		"candidateCount": len(candidates),
	})

	return candidates, nil
}
