// Package http serves the adhesion dashboard, its HTMX partials and the
// JSON API.
//
// This file turns query strings into dashboard queries. Every parameter is
// optional; malformed values are reported as services.ErrInvalidQuery.
package http

import (
	"fmt"
	"net/http"
	"net/url"

	"a3p/internal/core"
	"a3p/internal/coverage"
	"a3p/internal/dataset"
	"a3p/internal/services"
)

// Query parameter names.
const (
	paramPower       = "power"
	paramSphere      = "sphere"
	paramState       = "state"
	paramFrom        = "from"
	paramTo          = "to"
	paramGranularity = "granularity"
	paramCeiling     = "ceiling"
)

// ParseDashboardQuery reads the dashboard selection from query values.
func ParseDashboardQuery(query url.Values) (services.DashboardQuery, error) {
	q := services.DashboardQuery{
		Power:  sanitizeInput(query.Get(paramPower)),
		Sphere: sanitizeInput(query.Get(paramSphere)),
		State:  sanitizeInput(query.Get(paramState)),
	}

	var err error
	if q.From, err = parseDateParam(query, paramFrom); err != nil {
		return q, err
	}
	if q.To, err = parseDateParam(query, paramTo); err != nil {
		return q, err
	}

	q.Granularity, err = coverage.ParseGranularity(query.Get(paramGranularity))
	if err != nil {
		return q, fmt.Errorf("%w: %v", services.ErrInvalidQuery, err)
	}
	return q, nil
}

// parseDateParam accepts ISO dates (as sent by date inputs) and the
// dd/mm/yyyy layout used in the spreadsheets. A missing parameter is the
// null date.
func parseDateParam(query url.Values, name string) (core.Date, error) {
	v := sanitizeInput(query.Get(name))
	if v == "" {
		return core.Date{}, nil
	}
	if d, ok := dataset.ParseDate(v); ok {
		return d, nil
	}
	return core.Date{}, fmt.Errorf("%w: invalid %s date %q", services.ErrInvalidQuery, name, v)
}

// parseCeiling reads the coverage ceiling, defaulting to today. Ceilings more
// than horizon days after today are rejected.
func parseCeiling(query url.Values, today core.Date, horizon int) (core.Date, error) {
	d, err := parseDateParam(query, paramCeiling)
	if err != nil || d.IsEmpty() {
		return today, err
	}
	if latest := today.AddDays(horizon); d.After(latest.Time) {
		return core.Date{}, fmt.Errorf("%w: ceiling %s is after %s", services.ErrInvalidQuery, d, latest)
	}
	return d, nil
}

// RequireMethod checks if the request method matches the expected method(s).
// Returns an error response builder if the method doesn't match.
func RequireMethod(r *http.Request, methods ...string) *HTMXResponseBuilder {
	for _, m := range methods {
		if r.Method == m {
			return nil
		}
	}
	return MethodNotAllowedError(methods...)
}
