package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"agrisense-backend/internal/auth"
	"agrisense-backend/internal/scope"
)

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	stats, err := s.analytics.Stats(r.Context(), scope.For(caller))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"stats": stats})
}

func (s *Server) handleMaturityChart(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	chart, err := s.analytics.MaturityChart(r.Context(), scope.For(caller))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"chart_data": chart})
}

func (s *Server) handleSucroseTrend(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)

	days := 7
	if v := strings.TrimSpace(r.URL.Query().Get("days")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}

	trend, err := s.analytics.SucroseTrend(r.Context(), scope.For(caller), days)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"chart_data": trend})
}

func (s *Server) handleEnvironmental(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	points, err := s.analytics.Environmental(r.Context(), scope.For(caller))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"chart_data": points})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	caller, _ := auth.CallerFrom(r)
	alerts, err := s.analytics.Alerts(r.Context(), scope.For(caller))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"alerts": alerts})
}
