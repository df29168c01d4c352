package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sw33tLie/adscope/pkg/adlibrary"
	"github.com/sw33tLie/adscope/pkg/ads"
	"github.com/sw33tLie/adscope/pkg/dedup"
	"github.com/sw33tLie/adscope/pkg/estimate"
	"github.com/sw33tLie/adscope/pkg/pipeline"
	"github.com/sw33tLie/adscope/pkg/report"
	"github.com/sw33tLie/adscope/pkg/storage"
)

const maxUploadBytes = 32 << 20

type runResponse struct {
	Run           *storage.Run             `json:"run,omitempty"`
	Records       []estimate.Record        `json:"records"`
	LowConfidence []estimate.LowConfidence `json:"low_confidence"`
	Dedup         dedup.Stats              `json:"dedup"`
	Error         string                   `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.DB.GetStats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, stats)
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 {
			http.Error(w, "bad limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	runs, err := s.DB.ListRuns(r.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// requireRun writes a 404 and returns false when the run does not exist.
func (s *Server) requireRun(w http.ResponseWriter, r *http.Request) (storage.Run, bool) {
	run, err := s.DB.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, storage.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return run, false
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return run, false
	}
	return run, true
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if run, ok := s.requireRun(w, r); ok {
		writeJSON(w, run)
	}
}

func (s *Server) handleEstimates(w http.ResponseWriter, r *http.Request) {
	run, ok := s.requireRun(w, r)
	if !ok {
		return
	}
	records, err := s.DB.ListEstimates(r.Context(), run.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

func (s *Server) handleLowConfidence(w http.ResponseWriter, r *http.Request) {
	run, ok := s.requireRun(w, r)
	if !ok {
		return
	}
	records, err := s.DB.ListLowConfidence(r.Context(), run.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, records)
}

// decodeUpload reads a results page when the body is text/html, an ads CSV
// otherwise.
func (s *Server) decodeUpload(r *http.Request) ([]ads.RawAd, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/html" {
		parser := adlibrary.NewParser(adlibrary.ParserConfig{Log: s.Log})
		res, err := parser.Parse(r.Context(), r.Body)
		if err != nil {
			return nil, err
		}
		if len(res.Failures) > 0 {
			s.Log.Warnf("%d card(s) could not be fully extracted", len(res.Failures))
		}
		return res.Ads, nil
	}
	return report.DecodeAds(r.Body)
}

// handleCreateRun runs the pipeline over the uploaded batch. Output failures
// are reported in the body and do not fail the request.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	list, err := s.decodeUpload(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("bad upload: %v", err), http.StatusBadRequest)
		return
	}

	id := uuid.NewString()
	res, err := s.Runner.Run(r.Context(), list, pipeline.RunOptions{
		OutputPath:        filepath.Join(s.OutputDir, "estimates_"+id+".csv"),
		LowConfidencePath: filepath.Join(s.OutputDir, "low_confidence_"+id+".csv"),
		Keyword:           r.URL.Query().Get("keyword"),
		Country:           r.URL.Query().Get("country"),
		Source:            "api",
	})
	if res == nil {
		msg := "run failed"
		if err != nil {
			msg = err.Error()
		}
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}

	resp := runResponse{Run: res.Run, Records: res.Records, LowConfidence: res.LowConfidence, Dedup: res.Dedup}
	if err != nil {
		s.Log.Errorf("run %s: %v", id, err)
		resp.Error = err.Error()
	}
	status := http.StatusOK
	if res.Run != nil {
		status = http.StatusCreated
	}
	writeJSONStatus(w, status, resp)
}
