package search

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"jobsearch-api/internal/clients/geoapi"
	"jobsearch-api/internal/common/database"
	"jobsearch-api/internal/common/errors"
	"jobsearch-api/internal/common/logger"
	"jobsearch-api/internal/common/metrics"
	"jobsearch-api/internal/models"
)

// GeoLookup is the geography index consumed by the resolver.
type GeoLookup interface {
	SearchRegions(ctx context.Context, name string) ([]geoapi.Candidate, error)
	SearchDepartments(ctx context.Context, name string) ([]geoapi.Candidate, error)
	SearchCommunes(ctx context.Context, name string) ([]geoapi.Candidate, error)
}

const locationCacheTTL = 24 * time.Hour

// Resolver maps free-text locations to provider geographic codes.
// Resolutions are cached in Redis since the underlying codes are
// effectively static; a nil redis client disables caching.
type Resolver struct {
	geo    GeoLookup
	redis  *database.RedisClient
	logger logger.Logger
}

func NewResolver(geo GeoLookup, redis *database.RedisClient, log logger.Logger) *Resolver {
	return &Resolver{
		geo:    geo,
		redis:  redis,
		logger: log.WithFields(map[string]interface{}{"component": "location-resolver"}),
	}
}

// cachedResolution is the Redis payload; a nil Location records a
// confirmed miss so unresolvable text doesn't re-query the index.
type cachedResolution struct {
	Location *models.ResolvedLocation `json:"location"`
	Meta     models.LocationMeta      `json:"meta"`
}

// Resolve maps raw location text to a single provider scope. A miss is
// not an error: the task is simply dispatched without a location filter.
// A resolved commune also surfaces its parent department code in the
// returned metadata.
func (r *Resolver) Resolve(ctx context.Context, raw string, hint models.LocationType) (*models.ResolvedLocation, models.LocationMeta) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return nil, models.LocationMeta{}
	}

	cacheKey := "loc:" + string(hint) + ":" + normalized
	if r.redis != nil {
		if cached, err := r.redis.Get(ctx, cacheKey); err == nil {
			var resolution cachedResolution
			if err := json.Unmarshal([]byte(cached), &resolution); err == nil {
				metrics.LocationCacheHits.WithLabelValues("hit").Inc()
				return resolution.Location, resolution.Meta
			}
		}
		metrics.LocationCacheHits.WithLabelValues("miss").Inc()
	}

	location, meta := r.lookup(ctx, normalized, hint)

	if r.redis != nil {
		if encoded, err := json.Marshal(cachedResolution{Location: location, Meta: meta}); err == nil {
			if err := r.redis.Set(ctx, cacheKey, encoded, locationCacheTTL); err != nil {
				r.logger.Warn("location cache write failed", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	return location, meta
}

func (r *Resolver) lookup(ctx context.Context, text string, hint models.LocationType) (*models.ResolvedLocation, models.LocationMeta) {
	switch hint {
	case models.LocationTypeRegion:
		return r.tryRegion(ctx, text)
	case models.LocationTypeDepartement:
		return r.tryDepartment(ctx, text)
	case models.LocationTypeCommune:
		return r.tryCommune(ctx, text)
	default:
		// No usable hint: widest scope first.
		if loc, meta := r.tryRegion(ctx, text); loc != nil {
			return loc, meta
		}
		if loc, meta := r.tryDepartment(ctx, text); loc != nil {
			return loc, meta
		}
		return r.tryCommune(ctx, text)
	}
}

func (r *Resolver) tryRegion(ctx context.Context, text string) (*models.ResolvedLocation, models.LocationMeta) {
	candidates, err := r.geo.SearchRegions(ctx, text)
	if err != nil || len(candidates) == 0 {
		r.logMiss("region", text, err)
		return nil, models.LocationMeta{}
	}
	r.logHit("region", text, candidates[0].Code)
	return &models.ResolvedLocation{Scope: models.ScopeRegion, Code: candidates[0].Code}, models.LocationMeta{}
}

func (r *Resolver) tryDepartment(ctx context.Context, text string) (*models.ResolvedLocation, models.LocationMeta) {
	candidates, err := r.geo.SearchDepartments(ctx, text)
	if err != nil || len(candidates) == 0 {
		r.logMiss("departement", text, err)
		return nil, models.LocationMeta{}
	}
	r.logHit("departement", text, candidates[0].Code)
	return &models.ResolvedLocation{Scope: models.ScopeDepartement, Code: candidates[0].Code}, models.LocationMeta{}
}

func (r *Resolver) tryCommune(ctx context.Context, text string) (*models.ResolvedLocation, models.LocationMeta) {
	candidates, err := r.geo.SearchCommunes(ctx, text)
	if err != nil || len(candidates) == 0 {
		r.logMiss("commune", text, err)
		return nil, models.LocationMeta{}
	}

	best := candidates[0]
	meta := models.LocationMeta{}
	if best.Departement != nil {
		meta.Dept = best.Departement.Code
	}
	r.logHit("commune", text, best.Code)
	return &models.ResolvedLocation{Scope: models.ScopeCommune, Code: best.Code}, meta
}

func (r *Resolver) logHit(scope, text, code string) {
	r.logger.Debug("location resolved", map[string]interface{}{
		"scope": scope,
		"text":  text,
		"code":  code,
	})
}

func (r *Resolver) logMiss(scope, text string, err error) {
	fields := map[string]interface{}{
		"scope": scope,
		"text":  text,
	}
	if err != nil {
		r.logger.WithError(errors.NewLocationLookupFailedError(scope, err)).
			Warn("location lookup errored, treating as miss", fields)
		return
	}
	r.logger.Debug("location lookup missed", fields)
}
