package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classafix/caf-copilot/internal/cases"
	"github.com/classafix/caf-copilot/internal/domain"
	"github.com/classafix/caf-copilot/internal/storage"
)

const testCaseID = "6f1d1c9a-2b7e-4a57-8c1d-0e5a3b2c4d10"

type fakeService struct {
	cases map[string]*domain.Case

	triageErr   error
	getCalls    int
	lastTriage  string
	lastVision  []domain.Media
	lastPricing cases.Selection
	lastQuote   string
}

func newFakeService() *fakeService {
	return &fakeService{cases: map[string]*domain.Case{
		testCaseID: {
			ID:     testCaseID,
			Title:  domain.UntitledCase,
			Status: domain.CaseStatusNew,
			Media:  []domain.Media{{URL: "https://cdn/a.jpg", ContentType: "image/jpeg"}},
		},
	}}
}

func (f *fakeService) get(id string) (*domain.Case, error) {
	c, ok := f.cases[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeService) CreateCase(ctx context.Context, externalJobID *string, description string) (*domain.Case, error) {
	c := &domain.Case{ID: "new-id", ExternalJobID: externalJobID, Description: description, Title: domain.UntitledCase, Status: domain.CaseStatusNew}
	f.cases[c.ID] = c
	return c, nil
}

func (f *fakeService) Get(ctx context.Context, id string) (*domain.Case, error) {
	f.getCalls++
	return f.get(id)
}

func (f *fakeService) List(ctx context.Context, limit int) ([]domain.Case, error) {
	return nil, nil
}

func (f *fakeService) AttachMedia(ctx context.Context, id string, media []domain.Media) (*domain.Case, error) {
	c, err := f.get(id)
	if err != nil {
		return nil, err
	}
	c.Media = append(c.Media, media...)
	return c, nil
}

func (f *fakeService) RunTriage(ctx context.Context, id, description string) (*cases.Outcome[*domain.TriageResult], error) {
	c, err := f.get(id)
	if err != nil {
		return nil, err
	}
	if f.triageErr != nil {
		return nil, f.triageErr
	}
	f.lastTriage = description
	if description == "" && c.Description == "" {
		return nil, domain.NewValidationFailure("description is required").WithStage("triage")
	}
	return &cases.Outcome[*domain.TriageResult]{Result: &domain.TriageResult{Category: "Plumbing"}, Case: c}, nil
}

func (f *fakeService) RunVisionRecon(ctx context.Context, id, contextText string, media []domain.Media) (*cases.Outcome[*domain.VisionRecon], error) {
	c, err := f.get(id)
	if err != nil {
		return nil, err
	}
	f.lastVision = media
	return &cases.Outcome[*domain.VisionRecon]{Result: &domain.VisionRecon{VisionSummary: "wet ceiling"}, Case: c}, nil
}

func (f *fakeService) RunFinalDiagnosis(ctx context.Context, id string, answers map[string]string, tenantText, visionReconRaw string) (*cases.Outcome[*domain.DiagnosisSet], error) {
	return nil, domain.NewValidationFailure("triage must run before final diagnosis")
}

func (f *fakeService) RunPricing(ctx context.Context, id string, sel cases.Selection, description string) (*cases.Outcome[*domain.PricingRecommendation], error) {
	c, err := f.get(id)
	if err != nil {
		return nil, err
	}
	f.lastPricing = sel
	return &cases.Outcome[*domain.PricingRecommendation]{Result: &domain.PricingRecommendation{FinalRecommendedPrice: 420}, Case: c}, nil
}

func (f *fakeService) RunQuoteAnalysis(ctx context.Context, id, input string) (*cases.Outcome[*domain.QuoteAnalysis], error) {
	f.lastQuote = input
	return nil, domain.NewSchemaViolation(map[string]any{"currency": "AUD"}, []string{"fair_range_low"}, "missing required fields")
}

func (f *fakeService) TenantMessage(ctx context.Context, id string, answers map[string]string) (string, error) {
	if _, err := f.get(id); err != nil {
		return "", err
	}
	return "Hi, could you tell us more?", nil
}

type memStore struct {
	puts []string
}

func (m *memStore) Put(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (storage.Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.Object{}, err
	}
	if len(data) == 0 {
		return storage.Object{}, storage.ErrEmptyObject
	}
	m.puts = append(m.puts, filename)
	return storage.Object{URL: "https://cdn/uploads/" + filename, ContentType: contentType, Pathname: "uploads/" + filename}, nil
}

func testRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Get("/v1/cases", app.ListCases)
	r.Post("/v1/cases", app.CreateCase)
	r.Get("/v1/cases/{id}", app.GetCase)
	r.Post("/v1/cases/{id}/triage", app.Triage)
	r.Post("/v1/cases/{id}/vision", app.Vision)
	r.Post("/v1/cases/{id}/media", app.AttachMedia)
	r.Post("/v1/cases/{id}/tenant-message", app.TenantMessage)
	r.Post("/v1/cases/{id}/diagnosis", app.Diagnosis)
	r.Post("/v1/cases/{id}/pricing", app.Pricing)
	r.Post("/v1/cases/{id}/quote-analysis", app.QuoteAnalysis)
	r.Post("/v1/uploads", app.Upload)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return rec, out
}

func errorOf(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "expected error body, got %v", body)
	return e
}

func newTestApp(svc *fakeService) (*App, *memStore) {
	store := &memStore{}
	return NewApp(svc, store, nil, zerolog.Nop(), 1<<20), store
}

func TestCreateAndGetCase(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	h := testRouter(app)

	rec, body := do(t, h, http.MethodPost, "/v1/cases", `{"external_job_id":"WO-1","description":"leak"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "WO-1", body["external_job_id"])

	rec, body = do(t, h, http.MethodPost, "/v1/cases", "")
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, domain.UntitledCase, body["title"])

	rec, body = do(t, h, http.MethodGet, "/v1/cases/"+testCaseID, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "new", body["status"])
}

func TestGetCaseNotFound(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	h := testRouter(app)

	rec, body := do(t, h, http.MethodGet, "/v1/cases/not-a-uuid", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", errorOf(t, body)["kind"])

	rec, _ = do(t, h, http.MethodGet, "/v1/cases/00000000-0000-0000-0000-000000000000", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCasesEmpty(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	rec, body := do(t, testRouter(app), http.MethodGet, "/v1/cases?limit=5", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{}, body["items"])

	rec, _ = do(t, testRouter(app), http.MethodGet, "/v1/cases?limit=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriageWithoutDescriptionOrStoredText(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	rec, body := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/triage", `{"description":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := errorOf(t, body)
	assert.Equal(t, "validation", e["kind"])
	assert.Contains(t, e["message"], "description is required")
}

func TestTriageUsesStoredDescription(t *testing.T) {
	svc := newFakeService()
	svc.cases[testCaseID].Description = "Kitchen tap leaking"
	app, _ := newTestApp(svc)
	rec, _ := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/triage", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.lastTriage)
}

func TestTriageRejectsOversizedDescription(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	long := strings.Repeat("a", 20001)
	rec, _ := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/triage", `{"description":"`+long+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriageRejectsUnknownFields(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	rec, _ := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/triage", `{"description":"x","extra":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTriageSuccess(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	rec, body := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/triage", `{"description":"Kitchen tap leaking"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result := body["result"].(map[string]any)
	assert.Equal(t, "Plumbing", result["category"])
	assert.NotNil(t, body["case"])
}

func TestFailureStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"upstream", domain.NewUpstreamFailure(500, "boom"), http.StatusBadGateway, "upstream"},
		{"timeout", domain.NewTimeoutFailure(context.DeadlineExceeded), http.StatusGatewayTimeout, "upstream"},
		{"network", domain.NewNetworkFailure(errors.New("dial tcp")), http.StatusBadGateway, "network"},
		{"malformed", domain.NewMalformedOutputFailure("Sorry", "Sorry", errors.New("no object")), http.StatusUnprocessableEntity, "malformed_model_output"},
		{"conflict", domain.ErrConflict, http.StatusConflict, "conflict"},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newFakeService()
			svc.triageErr = tc.err
			app, _ := newTestApp(svc)
			rec, body := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/triage", `{"description":"x"}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.kind, errorOf(t, body)["kind"])
		})
	}
}

func TestUpstreamFailureCarriesDiagnostics(t *testing.T) {
	svc := newFakeService()
	svc.triageErr = domain.NewUpstreamFailure(503, "overloaded").WithStage("triage")
	app, _ := newTestApp(svc)
	_, body := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/triage", `{"description":"x"}`)
	e := errorOf(t, body)
	assert.Equal(t, float64(503), e["status_code"])
	assert.Equal(t, "overloaded", e["body"])
	assert.Equal(t, "triage", e["stage"])
}

func TestVisionLeavesMediaFallbackToService(t *testing.T) {
	svc := newFakeService()
	app, _ := newTestApp(svc)
	rec, _ := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/vision", `{"context":"ceiling stain"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.lastVision)
	assert.Zero(t, svc.getCalls)

	rec, _ = do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/vision",
		`{"context":"ceiling stain","media":[{"url":"https://cdn/b.png","content_type":"image/png"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.lastVision, 1)
	assert.Equal(t, "https://cdn/b.png", svc.lastVision[0].URL)
}

func TestDiagnosisValidationFailure(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	rec, body := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/diagnosis", `{"answers":{"q1":"yes"},"tenant_text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, body)["message"], "triage must run")
}

func TestPricingSelection(t *testing.T) {
	svc := newFakeService()
	app, _ := newTestApp(svc)
	h := testRouter(app)

	rec, body := do(t, h, http.MethodPost, "/v1/cases/"+testCaseID+"/pricing", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorOf(t, body)["message"], "selectedindex or diagnosis is required")

	rec, _ = do(t, h, http.MethodPost, "/v1/cases/"+testCaseID+"/pricing", `{"selected_index":-1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/v1/cases/"+testCaseID+"/pricing", `{"selected_index":1}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastPricing.Index)
	assert.Equal(t, 1, *svc.lastPricing.Index)

	rec, _ = do(t, h, http.MethodPost, "/v1/cases/"+testCaseID+"/pricing", `{"diagnosis":{"title":"Replace washer"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.lastPricing.Diagnosis)
	assert.Equal(t, "Replace washer", svc.lastPricing.Diagnosis.Title)
}

func TestQuoteAnalysisInputForms(t *testing.T) {
	svc := newFakeService()
	app, _ := newTestApp(svc)
	h := testRouter(app)

	rec, body := do(t, h, http.MethodPost, "/v1/cases/"+testCaseID+"/quote-analysis", `{"input":"Subbie quoted $900 inc GST"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	e := errorOf(t, body)
	assert.Equal(t, "schema_violation", e["kind"])
	assert.Equal(t, []any{"fair_range_low"}, e["missing"])
	assert.Equal(t, "Subbie quoted $900 inc GST", svc.lastQuote)

	do(t, h, http.MethodPost, "/v1/cases/"+testCaseID+"/quote-analysis", `{"input":{"quote":900}}`)
	assert.JSONEq(t, `{"quote":900}`, svc.lastQuote)
}

func TestTenantMessage(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	rec, body := do(t, testRouter(app), http.MethodPost, "/v1/cases/"+testCaseID+"/tenant-message", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hi, could you tell us more?", body["message"])
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range files {
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestAttachMedia(t *testing.T) {
	svc := newFakeService()
	app, store := newTestApp(svc)
	body, ct := multipartBody(t, map[string]string{"leak.jpg": "jpeg"})

	req := httptest.NewRequest(http.MethodPost, "/v1/cases/"+testCaseID+"/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	testRouter(app).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"leak.jpg"}, store.puts)
	assert.Len(t, svc.cases[testCaseID].Media, 2)
}

func TestAttachMediaRequiresFile(t *testing.T) {
	app, _ := newTestApp(newFakeService())
	body, ct := multipartBody(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/v1/cases/"+testCaseID+"/media", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	testRouter(app).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload(t *testing.T) {
	app, store := newTestApp(newFakeService())
	h := testRouter(app)

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads?filename=roof.png", strings.NewReader("png-bytes"))
	req.Header.Set("Content-Type", "image/png")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	var obj storage.Object
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &obj))
	assert.Equal(t, "uploads/roof.png", obj.Pathname)
	assert.Equal(t, "image/png", obj.ContentType)
	assert.Equal(t, []string{"roof.png"}, store.puts)

	rec, _ = do(t, h, http.MethodPost, "/v1/uploads", "data")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/v1/uploads?filename=big.png", strings.NewReader(strings.Repeat("x", 2<<20)))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

type downDB struct{}

func (downDB) Ping(ctx context.Context) error { return errors.New("connection refused") }

func TestHealth(t *testing.T) {
	app := NewApp(newFakeService(), &memStore{}, nil, zerolog.Nop(), 0)
	rec := httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	app.DB = downDB{}
	rec = httptest.NewRecorder()
	app.Health(rec, httptest.NewRequest(http.MethodGet, "/v1/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
