package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/comparable-finder/internal/export"
	"github.com/jonathan/comparable-finder/internal/store"
	"github.com/jonathan/comparable-finder/internal/types"
)

// SearchResponse is the response for POST /search.
type SearchResponse struct {
	CacheKey      string                   `json:"cache_key"`
	FromCache     bool                     `json:"from_cache"`
	TargetCompany types.TargetCompany      `json:"target_company"`
	CompanyCount  int                      `json:"company_count"`
	Timestamp     time.Time                `json:"timestamp"`
	Results       []types.CandidateCompany `json:"results"`
}

// ClearResponse is the response for DELETE /history.
type ClearResponse struct {
	Deleted int `json:"deleted"`
}

// handleSearch submits a target company. Identical targets are served from
// cache; concurrent identical submissions share one pipeline run.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	target, err := decodeTarget(r)
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	target.Normalize()
	if err := target.Validate(); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid target company: "+err.Error())
		return
	}

	key := store.CacheKey(*target)

	if entry, err := s.store.Get(r.Context(), key); err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "history lookup failed: "+err.Error())
		return
	} else if entry != nil {
		s.jsonResponse(w, http.StatusOK, searchResponse(entry, true))
		return
	}

	v, err, _ := s.flight.Do(key, func() (any, error) {
		// Another request may have finished while this one waited.
		if entry, err := s.store.Get(r.Context(), key); err == nil && entry != nil {
			return entry, nil
		}

		results, err := s.searcher.Find(r.Context(), *target)
		if err != nil {
			return nil, err
		}

		entry := store.NewEntry(*target, results)
		if err := s.store.Save(r.Context(), entry); err != nil {
			return nil, fmt.Errorf("failed to save results: %w", err)
		}
		return entry, nil
	})
	if err != nil {
		s.log.Error("search failed", zap.String("target", target.Name), zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, searchResponse(v.(*store.CacheEntry), false))
}

// decodeTarget reads a target company from a JSON body or an HTML form post.
func decodeTarget(r *http.Request) (*types.TargetCompany, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body: %w", err)
		}
		return &types.TargetCompany{
			Name:                          r.FormValue("name"),
			URL:                           r.FormValue("url"),
			BusinessDescription:           r.FormValue("business_description"),
			PrimaryIndustryClassification: r.FormValue("primary_industry_classification"),
		}, nil
	}

	var target types.TargetCompany
	if err := json.NewDecoder(r.Body).Decode(&target); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	return &target, nil
}

func searchResponse(entry *store.CacheEntry, fromCache bool) SearchResponse {
	return SearchResponse{
		CacheKey:      entry.CacheKey,
		FromCache:     fromCache,
		TargetCompany: entry.TargetCompany,
		CompanyCount:  entry.CompanyCount,
		Timestamp:     entry.Timestamp,
		Results:       entry.Results,
	}
}

// handleListHistory returns history summaries, newest first.
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	summaries, err := s.store.List(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to list history: "+err.Error())
		return
	}
	if summaries == nil {
		summaries = []store.Summary{}
	}
	s.jsonResponse(w, http.StatusOK, summaries)
}

// handleGetHistory returns one full cached entry.
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entryFromPath(w, r)
	if !ok {
		return
	}
	s.jsonResponse(w, http.StatusOK, entry)
}

// handleDeleteHistory deletes one cached entry.
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	deleted, err := s.store.Delete(r.Context(), key)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to delete entry: "+err.Error())
		return
	}
	if !deleted {
		s.errorResponse(w, http.StatusNotFound, "history entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClearHistory removes all cached entries.
func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Clear(r.Context())
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "failed to clear history: "+err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, ClearResponse{Deleted: count})
}

// handleExport streams one cached result set as a CSV or Excel attachment.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	entry, ok := s.entryFromPath(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	base := "comparables_" + exportFileName(entry.TargetCompany.Name)

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+".csv"))
		if err := export.WriteCSV(w, entry.Results); err != nil {
			s.log.Error("CSV export failed", zap.String("cache_key", entry.CacheKey), zap.Error(err))
		}
	case "xlsx":
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", base+".xlsx"))
		if err := export.WriteExcel(w, entry.Results); err != nil {
			s.log.Error("Excel export failed", zap.String("cache_key", entry.CacheKey), zap.Error(err))
		}
	default:
		s.errorResponse(w, http.StatusBadRequest, "unsupported format: "+format)
	}
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// entryFromPath loads the history entry named by the {key} path segment,
// writing the error response itself when missing.
func (s *Server) entryFromPath(w http.ResponseWriter, r *http.Request) (*store.CacheEntry, bool) {
	key := r.PathValue("key")
	entry, err := s.store.Get(r.Context(), key)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, "history lookup failed: "+err.Error())
		return nil, false
	}
	if entry == nil {
		s.errorResponse(w, http.StatusNotFound, "history entry not found")
		return nil, false
	}
	return entry, true
}

// exportFileName lowercases a company name and replaces spaces for use in a
// download filename.
func exportFileName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	if name == "" {
		name = "results"
	}
	return name
}
