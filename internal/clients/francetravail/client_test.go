package francetravail

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProviderServer(t *testing.T, tokenCalls *int32, results []map[string]interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			atomic.AddInt32(tokenCalls, 1)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "test-token",
				"expires_in":   3600,
			})
		case "/offres/search":
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			if results == nil {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			w.WriteHeader(http.StatusPartialContent)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"resultats": results})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(&Config{
		BaseURL:      srv.URL,
		TokenURL:     srv.URL + "/token",
		ClientID:     "id",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
	}, logger.NewNoOpLogger())
}

func TestClient_Search_NormalizesRecords(t *testing.T) {
	var tokenCalls int32
	srv := newProviderServer(t, &tokenCalls, []map[string]interface{}{
		{
			"id":          "offer-1",
			"intitule":    "Backend Engineer",
			"description": "Go services",
			"entreprise":  map[string]interface{}{"nom": "ACME"},
			"lieuTravail": map[string]interface{}{"libelle": "75 - Paris"},
		},
	})
	defer srv.Close()

	client := newTestClient(srv)

	listings, err := client.Search(context.Background(), SearchParams{Keywords: "Backend"})
	require.NoError(t, err)
	require.Len(t, listings, 1)

	assert.Equal(t, "offer-1", listings[0].ID())
	assert.Equal(t, "Backend Engineer", listings[0].Title())
	assert.Equal(t, "ACME", listings[0]["company_name"])
	assert.Equal(t, "75 - Paris", listings[0]["location_label"])
}

func TestClient_Search_NoContentMeansEmpty(t *testing.T) {
	var tokenCalls int32
	srv := newProviderServer(t, &tokenCalls, nil)
	defer srv.Close()

	client := newTestClient(srv)

	listings, err := client.Search(context.Background(), SearchParams{Keywords: "nothing"})
	require.NoError(t, err)
	assert.Empty(t, listings)
}

func TestClient_Search_ReusesToken(t *testing.T) {
	var tokenCalls int32
	srv := newProviderServer(t, &tokenCalls, []map[string]interface{}{
		{"id": "offer-1", "intitule": "Dev"},
	})
	defer srv.Close()

	client := newTestClient(srv)

	_, err := client.Search(context.Background(), SearchParams{Keywords: "Dev"})
	require.NoError(t, err)
	_, err = client.Search(context.Background(), SearchParams{Keywords: "Dev"})
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

func TestClient_Search_TokenFailureIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Search(context.Background(), SearchParams{Keywords: "Dev"})
	require.Error(t, err)
	stdErr := errors.AsStandard(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, errors.ErrCodeProviderAuthFailed, stdErr.Code)
	assert.True(t, stdErr.Retryable)
}

func TestClient_Search_UpstreamFailureIsSearchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/token" {
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "test-token",
				"expires_in":   3600,
			})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newTestClient(srv).Search(context.Background(), SearchParams{Keywords: "Dev"})
	require.Error(t, err)
	stdErr := errors.AsStandard(err)
	require.NotNil(t, stdErr)
	assert.Equal(t, errors.ErrCodeProviderSearchFailed, stdErr.Code)
}

func TestClient_BuildQuery_OmitsEmptyFilters(t *testing.T) {
	client := NewClient(&Config{PageSize: 50}, logger.NewNoOpLogger())

	fullTime := true
	q := client.buildQuery(SearchParams{
		Keywords:    "React Developer",
		Departement: "75",
		FullTime:    &fullTime,
	})

	assert.Contains(t, q, "motsCles=React+Developer")
	assert.Contains(t, q, "departement=75")
	assert.Contains(t, q, "tempsPlein=true")
	assert.NotContains(t, q, "region=")
	assert.NotContains(t, q, "commune=")
}
