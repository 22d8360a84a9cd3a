// internal/geo/resolver.go
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"silicoshield/internal/models"
)

const (
	primaryGeoURL   = "http://ip-api.com/json/"
	secondaryGeoURL = "https://ipapi.co/json/"

	// A device fix older than this is treated as stale and ignored.
	maxFixAge = 5 * time.Minute
)

// DeviceFix is a client-supplied device location reading, the analogue
// of a granted browser geolocation request.
type DeviceFix struct {
	Latitude  float64
	Longitude float64
	Timestamp time.Time
}

// ipAPIResponse is the payload of the primary service (ip-api.com).
type ipAPIResponse struct {
	Status     string  `json:"status"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	City       string  `json:"city"`
	RegionName string  `json:"regionName"`
	Country    string  `json:"country"`
}

// ipapiCoResponse is the payload of the secondary service (ipapi.co).
type ipapiCoResponse struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	CountryName string  `json:"country_name"`
}

// Resolver produces a best-effort location: a fresh device fix when one
// is supplied, otherwise an IP-based fallback chain. Resolution runs at
// most once per session; the outcome, including "unresolved", is cached
// and never re-run automatically.
type Resolver struct {
	primaryURL   string
	secondaryURL string
	http         *http.Client
	cache        *gocache.Cache
}

// unresolved marks a session whose resolution already failed, so the
// chain is not retried on every lookup.
type unresolved struct{}

// NewResolver creates a resolver with the given per-call timeout and
// per-session cache lifetime.
func NewResolver(timeout, cacheTTL time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Resolver{
		primaryURL:   primaryGeoURL,
		secondaryURL: secondaryGeoURL,
		http:         &http.Client{Timeout: timeout},
		cache:        gocache.New(cacheTTL, cacheTTL/2),
	}
}

// Resolve returns the session's location, or nil when none could be
// determined. A nil result means "no personalization available", never
// an error the caller should surface.
func (r *Resolver) Resolve(ctx context.Context, sessionID string, fix *DeviceFix) *models.LocationData {
	if v, ok := r.cache.Get(sessionID); ok {
		if loc, ok := v.(*models.LocationData); ok {
			return loc
		}
		return nil
	}

	loc := r.resolve(ctx, fix)
	if loc != nil {
		r.cache.SetDefault(sessionID, loc)
	} else {
		r.cache.SetDefault(sessionID, unresolved{})
	}
	return loc
}

func (r *Resolver) resolve(ctx context.Context, fix *DeviceFix) *models.LocationData {
	if fix != nil && time.Since(fix.Timestamp) <= maxFixAge {
		// Device geolocation yields coordinates only.
		return &models.LocationData{
			Latitude:  fix.Latitude,
			Longitude: fix.Longitude,
			Source:    models.SourceGPS,
		}
	}

	if loc, err := r.fetchPrimary(ctx); err == nil {
		return loc
	} else {
		log.Printf("primary IP geolocation failed, trying secondary: %v", err)
	}

	loc, err := r.fetchSecondary(ctx)
	if err != nil {
		log.Printf("secondary IP geolocation failed: %v", err)
		return nil
	}
	return loc
}

func (r *Resolver) fetchPrimary(ctx context.Context) (*models.LocationData, error) {
	var payload ipAPIResponse
	if err := r.fetchJSON(ctx, r.primaryURL, &payload); err != nil {
		return nil, err
	}
	if payload.Status == "fail" {
		return nil, fmt.Errorf("ip-api reported failure")
	}
	return &models.LocationData{
		Latitude:  payload.Lat,
		Longitude: payload.Lon,
		City:      payload.City,
		State:     payload.RegionName,
		Country:   payload.Country,
		Source:    models.SourceIP,
	}, nil
}

func (r *Resolver) fetchSecondary(ctx context.Context) (*models.LocationData, error) {
	var payload ipapiCoResponse
	if err := r.fetchJSON(ctx, r.secondaryURL, &payload); err != nil {
		return nil, err
	}
	return &models.LocationData{
		Latitude:  payload.Latitude,
		Longitude: payload.Longitude,
		City:      payload.City,
		State:     payload.Region,
		Country:   payload.CountryName,
		Source:    models.SourceIP,
	}, nil
}

func (r *Resolver) fetchJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("geolocation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("geolocation service returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed geolocation payload: %w", err)
	}
	return nil
}
