// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/mhalvorsen/pelorus/internal/models"
)

// createZoneRequest is the payload for POST /api/v1/zones. Geometry is
// either a polygon ring of at least three vertices or a center+radius
// circle; the store rejects a zone with neither.
type createZoneRequest struct {
	ID       string `json:"id" validate:"required,min=1,max=64"`
	Name     string `json:"name" validate:"omitempty,max=128"`
	Kind     string `json:"kind" validate:"required,oneof=storm piracy restricted accident"`
	Severity string `json:"severity" validate:"required,oneof=low medium high critical"`

	Active     *bool      `json:"active"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`

	Polygon  []pointPayload `json:"polygon" validate:"omitempty,min=3,dive"`
	Center   *pointPayload  `json:"center" validate:"omitempty"`
	RadiusKM float64        `json:"radius_km" validate:"omitempty,gt=0,lte=2000"`
}

type pointPayload struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lon float64 `json:"lon" validate:"longitude"`
}

// toModel converts the validated payload into a zone. Admin-created
// zones carry no source tag, which keeps them out of the hazard feed's
// replace-by-source scope.
func (req *createZoneRequest) toModel() *models.HazardZone {
	z := &models.HazardZone{
		ID:         req.ID,
		Name:       req.Name,
		Kind:       models.HazardKind(req.Kind),
		Severity:   models.Severity(req.Severity),
		Active:     true,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		RadiusKM:   req.RadiusKM,
	}
	if req.Active != nil {
		z.Active = *req.Active
	}
	if len(req.Polygon) > 0 {
		z.Polygon = make([]models.Position, len(req.Polygon))
		for i, p := range req.Polygon {
			z.Polygon[i] = models.Position{Lat: p.Lat, Lon: p.Lon}
		}
	}
	if req.Center != nil {
		z.Center = &models.Position{Lat: req.Center.Lat, Lon: req.Center.Lon}
	}
	return z
}

// queryTime parses an optional RFC3339 query parameter. The zero time
// means the parameter was absent.
func queryTime(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be RFC3339: %q", name, raw)
	}
	return t, nil
}

// queryInt parses an optional integer query parameter, clamped to
// [1, max]. Absent or zero falls back to def.
func queryInt(r *http.Request, name string, def, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %q", name, raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s must not be negative", name)
	}
	if n == 0 {
		return def, nil
	}
	if max > 0 && n > max {
		return max, nil
	}
	return n, nil
}

// queryBool parses an optional boolean query parameter. Returns whether
// the parameter was present at all alongside its value.
func queryBool(r *http.Request, name string) (value, present bool, err error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, true, fmt.Errorf("%s must be a boolean: %q", name, raw)
	}
	return v, true, nil
}

// pageBounds resolves limit/offset pagination from the query string
// against the configured defaults.
func (h *Handler) pageBounds(r *http.Request) (limit, offset int, err error) {
	defSize, maxSize := h.cfg.API.DefaultPageSize, h.cfg.API.MaxPageSize
	limit, err = queryInt(r, "limit", defSize, maxSize)
	if err != nil {
		return 0, 0, err
	}
	offset, err = queryInt(r, "offset", 0, 0)
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}
