package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/indexer-coordinator/engine/internal/api/types"
	"github.com/indexer-coordinator/engine/internal/models"
	"github.com/indexer-coordinator/engine/internal/projectconfig"
	"github.com/indexer-coordinator/engine/internal/repository"
	"github.com/indexer-coordinator/engine/internal/services"
	appErr "github.com/indexer-coordinator/engine/pkg/errors"
)

type ProjectsHandler struct {
	svc services.ProjectService
}

func NewProjectsHandler(svc services.ProjectService) *ProjectsHandler {
	return &ProjectsHandler{svc: svc}
}

func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter repository.ProjectFilter
	if v := q.Get("projectType"); v != "" {
		pt, err := models.ParseProjectType(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.ProjectType = pt
	}
	if v := q.Get("status"); v != "" {
		status, err := strconv.Atoi(v)
		if err != nil {
			writeErrorStr(w, r, http.StatusBadRequest, "status must be an integer")
			return
		}
		filter.Status = &status
	}

	items, err := h.svc.ListProjects(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("page_size"))
	if page <= 0 {
		page = 1
	}
	if size <= 0 || size > 100 {
		size = 20
	}
	start := (page - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	writeJSON(w, http.StatusOK, types.APIResponse{
		Success: true,
		Data:    items[start:end],
		Meta:    &types.Meta{Page: page, PageSize: size, Total: int64(len(items))},
	})
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req types.ProjectCreateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := req.ToProject()
	if err != nil {
		writeError(w, r, asInvalid(err, "invalid projectConfig"))
		return
	}
	created, err := h.svc.CreateProject(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, created)
}

// Get returns the detail view: record, cached metadata and PAYG policy.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.GetProjectDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, d)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteProject(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ProjectsHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req types.StatusUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.svc.UpdateStatus(r.Context(), id, *req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"id": id, "status": *req.Status})
}

func (h *ProjectsHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	var req types.ConfigUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.UpdateConfig(r.Context(), chi.URLParam(r, "id"), &services.UpdateConfigInput{
		Base:     req.BaseConfig,
		Advanced: req.AdvancedConfig,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

// UpdateProjectConfig replaces the runtime config. The body is decoded as the variant
// of the stored project type.
func (h *ProjectsHandler) UpdateProjectConfig(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeErrorStr(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	cur, err := h.svc.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	cfg, err := models.DecodeProjectConfig(cur.ProjectType, raw)
	if err != nil {
		writeError(w, r, asInvalid(err, "invalid projectConfig"))
		return
	}
	p, err := h.svc.UpdateProjectConfig(r.Context(), id, cfg)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, p)
}

func (h *ProjectsHandler) Logs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	logs, err := h.svc.ProjectLogs(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, logs)
}

type defaultsResponse struct {
	ProjectType    models.ProjectType            `json:"projectType"`
	BaseConfig     *models.ProjectBaseConfig     `json:"baseConfig"`
	AdvancedConfig *models.ProjectAdvancedConfig `json:"advancedConfig"`
	ProjectConfig  models.ProjectConfig          `json:"projectConfig"`
}

func (h *ProjectsHandler) Defaults(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.ResolveDefaults(models.ProjectType(chi.URLParam(r, "projectType")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, defaultsFor(d))
}

func defaultsFor(d projectconfig.Defaults) defaultsResponse {
	return defaultsResponse{ProjectType: d.Type, BaseConfig: d.Base, AdvancedConfig: d.Advanced, ProjectConfig: d.Project}
}

// asInvalid tags plain decode errors as invalid input; typed errors pass through.
func asInvalid(err error, msg string) error {
	if appErr.CodeOf(err) != appErr.CodeUnknown {
		return err
	}
	if _, status := types.FromError(err); status == http.StatusBadRequest {
		return err
	}
	return appErr.Wrap(err, appErr.CodeInvalid, msg)
}
