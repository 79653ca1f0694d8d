package http

import (
	"net/http"

	"consultcrm/internal/core"
)

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ref, err := parseReferenceDate(r.URL.Query(), s.now())
	if err != nil {
		handleError(w, r, "metrics", err)
		return
	}
	s.cached(w, r, "metrics", func() (any, error) {
		m, err := s.reports.Metrics(r.Context(), ref)
		if err != nil {
			return nil, err
		}
		return newMetricsResponse(ref, m), nil
	})
}

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref, err := parseReferenceDate(q, s.now())
	if err != nil {
		handleError(w, r, "forecast", err)
		return
	}
	days, err := parseHorizon(q, s.horizon)
	if err != nil {
		handleError(w, r, "forecast", err)
		return
	}
	s.cached(w, r, "forecast", func() (any, error) {
		points, err := s.reports.Forecast(r.Context(), ref, days)
		if err != nil {
			return nil, err
		}
		return newForecastResponse(ref, days, points), nil
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ref, err := parseReferenceDate(q, s.now())
	if err != nil {
		handleError(w, r, "analytics", err)
		return
	}
	query, err := parseAnalyticsQuery(q, ref)
	if err != nil {
		handleError(w, r, "analytics", err)
		return
	}
	s.cached(w, r, "analytics", func() (any, error) {
		a, err := s.reports.Analytics(r.Context(), query)
		if err != nil {
			return nil, err
		}
		return newAnalyticsResponse(a), nil
	})
}

// cached serves a report from the report cache when enabled. Keys include the
// current day so reports defaulting to "today" roll over at midnight.
func (s *Server) cached(w http.ResponseWriter, r *http.Request, op string, build func() (any, error)) {
	key := s.now().Format(core.ISODate) + " " + r.URL.Path + "?" + r.URL.Query().Encode()
	if s.reportCache != nil {
		if body, ok := s.reportCache.Get(key); ok {
			w.Header().Set("X-Cache", "HIT")
			writeJSON(w, http.StatusOK, body)
			return
		}
	}
	body, err := build()
	if err != nil {
		handleError(w, r, op, err)
		return
	}
	if s.reportCache != nil {
		s.reportCache.Set(key, body)
		w.Header().Set("X-Cache", "MISS")
	}
	writeJSON(w, http.StatusOK, body)
}

// invalidateReports drops cached reports after a ledger write.
func (s *Server) invalidateReports() {
	if s.reportCache != nil {
		s.reportCache.Purge()
	}
}
