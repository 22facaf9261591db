// Package francetravail is the client for the France Travail
// "offres d'emploi" v2 search API.
package francetravail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/common/httpclient"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/models"
)

// SearchParams is one provider query. Zero-value fields are omitted from
// the request.
type SearchParams struct {
	Keywords           string
	Region             string
	Departement        string
	Commune            string
	Experience         string
	ExperienceExigence string
	ContractType       string
	FullTime           *bool
}

type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	PageSize     int
}

type Client struct {
	config *Config
	client *httpclient.Client
	logger logger.Logger

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewClient(config *Config, log logger.Logger) *Client {
	if config.PageSize <= 0 {
		config.PageSize = 50
	}
	return &Client{
		config: config,
		client: httpclient.NewClient(config.Timeout),
		logger: log.WithFields(map[string]interface{}{"component": "francetravail"}),
	}
}

// Search executes one search against the provider and returns the raw
// listing records, normalized to the field names the rest of the service
// reads (id, title, description).
func (c *Client) Search(ctx context.Context, params SearchParams) ([]models.Listing, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, errors.NewProviderAuthFailedError(err)
	}

	searchURL := c.config.BaseURL + "/offres/search?" + c.buildQuery(params)
	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errors.NewProviderTimeoutError()
		}
		return nil, errors.NewProviderSearchFailedError(err)
	}
	defer resp.Body.Close()

	// 204: no offers match. 206: partial range, normal for ranged queries.
	switch resp.StatusCode {
	case http.StatusNoContent:
		return nil, nil
	case http.StatusOK, http.StatusPartialContent:
	default:
		return nil, errors.NewProviderSearchFailedError(fmt.Errorf("provider returned %d", resp.StatusCode))
	}

	var payload struct {
		Resultats []map[string]interface{} `json:"resultats"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, errors.NewProviderSearchFailedError(err)
	}

	listings := make([]models.Listing, 0, len(payload.Resultats))
	for _, raw := range payload.Resultats {
		listings = append(listings, normalize(raw))
	}

	c.logger.Debug("provider search completed", map[string]interface{}{
		"keywords":    params.Keywords,
		"resultCount": len(listings),
	})

	return listings, nil
}

func (c *Client) buildQuery(params SearchParams) string {
	q := url.Values{}
	if params.Keywords != "" {
		q.Set("motsCles", params.Keywords)
	}
	if params.Region != "" {
		q.Set("region", params.Region)
	}
	if params.Departement != "" {
		q.Set("departement", params.Departement)
	}
	if params.Commune != "" {
		q.Set("commune", params.Commune)
	}
	if params.Experience != "" {
		q.Set("experience", params.Experience)
	}
	if params.ExperienceExigence != "" {
		q.Set("experienceExigence", params.ExperienceExigence)
	}
	if params.ContractType != "" {
		q.Set("typeContrat", params.ContractType)
	}
	if params.FullTime != nil {
		q.Set("tempsPlein", strconv.FormatBool(*params.FullTime))
	}
	q.Set("range", fmt.Sprintf("0-%d", c.config.PageSize-1))
	return q.Encode()
}

// normalize maps the provider payload onto the field names the orchestrator
// reads, keeping everything else untouched for display.
func normalize(raw map[string]interface{}) models.Listing {
	l := models.Listing(raw)
	if _, ok := l["title"]; !ok {
		if intitule, ok := raw["intitule"].(string); ok {
			l["title"] = intitule
		}
	}
	if entreprise, ok := raw["entreprise"].(map[string]interface{}); ok {
		if nom, ok := entreprise["nom"].(string); ok {
			l["company_name"] = nom
		}
	}
	if lieu, ok := raw["lieuTravail"].(map[string]interface{}); ok {
		if libelle, ok := lieu["libelle"].(string); ok {
			l["location_label"] = libelle
		}
	}
	return l
}

// token returns a valid OAuth2 access token, fetching a fresh one through
// the client-credentials flow when the cached token is missing or within
// a minute of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry.Add(-time.Minute)) {
		return c.accessToken, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.config.ClientID)
	form.Set("client_secret", c.config.ClientSecret)
	form.Set("scope", "api_offresdemploiv2 o2dsoffre")

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %d", resp.StatusCode)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned empty token")
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)

	c.logger.Info("provider token refreshed", map[string]interface{}{
		"expiresIn": payload.ExpiresIn,
	})

	return c.accessToken, nil
}
