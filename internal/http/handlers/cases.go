package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/classafix/caf-copilot/internal/domain"
)

// caseID reads {id} from the route. Ids that are not UUIDs cannot exist.
func caseID(r *http.Request) (string, error) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		return "", domain.ErrNotFound
	}
	return id, nil
}

func (a *App) ListCases(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			a.error(w, http.StatusBadRequest, string(domain.FailureValidation), "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	items, err := a.Cases.List(r.Context(), limit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []domain.Case{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) CreateCase(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if r.ContentLength != 0 {
		if err := a.decode(w, r, &req); err != nil {
			a.fail(w, r, err)
			return
		}
	}
	c, err := a.Cases.CreateCase(r.Context(), req.ExternalJobID, req.Description)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, c)
}

func (a *App) GetCase(w http.ResponseWriter, r *http.Request) {
	id, err := caseID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	c, err := a.Cases.Get(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, c)
}
