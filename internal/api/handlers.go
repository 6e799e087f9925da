package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/starford/librarian/internal/apperr"
)

// Handler holds API route handlers.
type Handler struct {
	svc *Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Status handles GET /api/status.
//
//	@Summary		Vault and pipeline status
//	@Tags			pipeline
//	@Produce		json
//	@Success		200	{object}	StatusResponse
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status()
	if err != nil {
		slog.Error("status failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// ListProposals handles GET /api/proposals.
//
//	@Summary		List review-queue proposals
//	@Tags			proposals
//	@Produce		json
//	@Success		200	{object}	ProposalListResponse
//	@Security		BearerAuth
//	@Router			/proposals [get]
func (h *Handler) ListProposals(w http.ResponseWriter, r *http.Request) {
	proposals, err := h.svc.Proposals()
	if err != nil {
		slog.Error("list proposals failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"proposals": proposals,
		"total":     len(proposals),
	})
}

// ApproveProposal handles POST /api/proposals/approve.
//
//	@Summary		Approve a proposal for filing
//	@Tags			proposals
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ApproveRequest	true	"Proposal to approve"
//	@Success		200		{object}	ProposalItem
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/proposals/approve [post]
func (h *Handler) ApproveProposal(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ApproveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	decoded, err := url.PathUnescape(req.Path)
	if err == nil {
		req.Path = decoded
	}
	prop, err := h.svc.Approve(req.Path)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("approve failed", slog.String("path", req.Path), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, prop)
}

// RunPipeline handles POST /api/run.
//
//	@Summary		Run one full pipeline pass (file, ingest, commit)
//	@Tags			pipeline
//	@Produce		json
//	@Success		200	{object}	PipelineRunResponse
//	@Security		BearerAuth
//	@Router			/run [post]
func (h *Handler) RunPipeline(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RunPipeline(r.Context())
	if err != nil {
		slog.Error("pipeline run failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, PipelineRunResponse{
		Filed:     res.Filed.Filed,
		Written:   res.Filed.Written,
		Ingested:  res.Ingested.Ingested,
		Failed:    res.Filed.Failed + res.Ingested.Failed,
		Committed: res.Committed,
	})
}

// RunIngest handles POST /api/run/ingest.
//
//	@Summary		Process capture notes into proposals
//	@Tags			pipeline
//	@Produce		json
//	@Success		200	{object}	IngestRunResponse
//	@Security		BearerAuth
//	@Router			/run/ingest [post]
func (h *Handler) RunIngest(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RunIngest(r.Context())
	if err != nil {
		slog.Error("ingest run failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, IngestRunResponse{Ingested: res.Ingested, Failed: res.Failed})
}

// RunFiler handles POST /api/run/file.
//
//	@Summary		Execute approved proposals
//	@Tags			pipeline
//	@Produce		json
//	@Success		200	{object}	FilerRunResponse
//	@Security		BearerAuth
//	@Router			/run/file [post]
func (h *Handler) RunFiler(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RunFiler(r.Context())
	if err != nil {
		slog.Error("filer run failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, FilerRunResponse{Filed: res.Filed, Written: res.Written, Failed: res.Failed})
}

// RunMaintenance handles POST /api/run/maintenance.
//
//	@Summary		Run one maintenance pass
//	@Tags			maintenance
//	@Produce		json
//	@Success		200	{object}	MaintenanceRunResponse
//	@Security		BearerAuth
//	@Router			/run/maintenance [post]
func (h *Handler) RunMaintenance(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.RunMaintenance(r.Context())
	if err != nil {
		slog.Error("maintenance run failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, MaintenanceRunResponse{
		Scanned:  res.Scanned,
		Cooled:   res.Cooled,
		Proposed: res.Proposed,
		Failed:   res.Failed,
	})
}

// Audit handles GET /api/audit.
//
//	@Summary		Score the vault without proposing fixes
//	@Tags			maintenance
//	@Produce		json
//	@Success		200	{object}	AuditResponse
//	@Security		BearerAuth
//	@Router			/audit [get]
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	candidates, err := h.svc.Audit()
	if err != nil {
		slog.Error("audit failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"candidates": candidates,
		"total":      len(candidates),
	})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
