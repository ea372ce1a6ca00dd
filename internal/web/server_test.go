package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adelakul/retail-pulse/internal/catalog"
	"github.com/adelakul/retail-pulse/internal/config"
	"github.com/adelakul/retail-pulse/internal/core"
)

const goodCSV = "Product Name,Sales Amount,Order Date,Quantity\nWidget,10.50,2024-01-15,2\nGadget,3,2024-01-16,x\n"

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{MaxFileSize: 1 << 20},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, opts core.Options, db Pinger) (*Server, *core.Service) {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	svc := core.NewService(catalog.Default(), nil, opts)
	srv := NewServer(svc, db, cfg)
	t.Cleanup(func() {
		if srv.limiter != nil {
			srv.limiter.stop()
		}
	})
	return srv, svc
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	t.Run("no database", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, core.Options{MaxConcurrent: 2}, nil)
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		resp := decode[healthResponse](t, rec)
		assert.Equal(t, "ok", resp.Status)
		assert.Equal(t, "disabled", resp.Database)
		assert.Equal(t, 2, resp.Ingest.Available)
		assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("database down", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, core.Options{}, fakePinger{err: errors.New("connection refused")})
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))

		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		resp := decode[healthResponse](t, rec)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, "connection refused", resp.Database)
	})

	t.Run("database up", func(t *testing.T) {
		srv, _ := newTestServer(t, nil, core.Options{}, fakePinger{})
		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ok", decode[healthResponse](t, rec).Database)
	})
}

func TestCatalog(t *testing.T) {
	srv, _ := newTestServer(t, nil, core.Options{}, nil)
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/catalog", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[struct {
		Fields []struct {
			Name     string   `json:"name"`
			Required bool     `json:"required"`
			Type     string   `json:"type"`
			Patterns []string `json:"patterns"`
			Max      *float64 `json:"max"`
		} `json:"fields"`
	}](t, rec)
	require.Len(t, resp.Fields, catalog.Default().Len())
	assert.Equal(t, "product_name", resp.Fields[0].Name)
	assert.True(t, resp.Fields[0].Required)
	assert.Equal(t, "string", resp.Fields[0].Type)
	assert.NotEmpty(t, resp.Fields[0].Patterns)
	assert.Nil(t, resp.Fields[0].Max)
	assert.Equal(t, 1000000.0, *resp.Fields[1].Max)
}

func TestResolve(t *testing.T) {
	srv, _ := newTestServer(t, nil, core.Options{}, nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
		errCode  string
	}{
		{"mapped", `{"columns":["Item Description","Total Price","Order Date","Qty Sold"]}`, http.StatusOK, ""},
		{"bad json", `{"columns":`, http.StatusBadRequest, "ERR000"},
		{"no columns", `{"columns":[]}`, http.StatusBadRequest, "ERR000"},
		{"bad override", `{"columns":["a","b"],"overrides":{"quantity":"Units"}}`, http.StatusUnprocessableEntity, "MAP002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/resolve", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := do(t, srv, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.errCode != "" {
				assert.Equal(t, tt.errCode, decode[ErrorResponse](t, rec).Code)
				return
			}
			resp := decode[struct {
				Mapping struct {
					Assignments []struct {
						Field  string `json:"field"`
						Column string `json:"column"`
					} `json:"assignments"`
					UnresolvedRequired []string `json:"unresolved_required"`
				} `json:"mapping"`
				Review []string `json:"review"`
			}](t, rec)
			assert.Empty(t, resp.Mapping.UnresolvedRequired)
			got := map[string]string{}
			for _, a := range resp.Mapping.Assignments {
				got[a.Field] = a.Column
			}
			assert.Equal(t, "Item Description", got["product_name"])
			assert.Equal(t, "Qty Sold", got["quantity"])
			assert.NotNil(t, resp.Review)
		})
	}
}

func TestIngestMultipart(t *testing.T) {
	srv, svc := newTestServer(t, nil, core.Options{}, nil)

	rec := do(t, srv, multipartRequest(t, "march.csv", goodCSV, nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	summary := decode[core.RunSummary](t, rec)
	assert.Equal(t, "march.csv", summary.File)
	assert.Equal(t, 2, summary.TotalRows)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)
	require.Len(t, summary.Rejections, 1)
	assert.Equal(t, 3, summary.Rejections[0].Line)

	_, ok := svc.GetRun(summary.RunID)
	assert.True(t, ok)
}

func TestIngestMultipartOverrides(t *testing.T) {
	srv, _ := newTestServer(t, nil, core.Options{}, nil)
	csv := "Name,Sales Amount,Order Date,Quantity\nWidget,1,2024-01-15,2\n"

	rec := do(t, srv, multipartRequest(t, "o.csv", csv, map[string]string{
		"overrides": `{"product_name":"Name"}`,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[core.RunSummary](t, rec)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, "Name", summary.Mapping.Fields()["product_name"])
}

func TestIngestRawBody(t *testing.T) {
	srv, _ := newTestServer(t, nil, core.Options{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ingest?name=raw.csv", strings.NewReader(goodCSV))
	req.Header.Set("Content-Type", "text/csv")
	rec := do(t, srv, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "raw.csv", decode[core.RunSummary](t, rec).File)
}

func TestIngestErrors(t *testing.T) {
	tests := []struct {
		name     string
		opts     core.Options
		req      func(t *testing.T) *http.Request
		wantCode int
		errCode  string
	}{
		{
			name:     "no file part",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "", "", map[string]string{"x": "y"}) },
			wantCode: http.StatusBadRequest,
			errCode:  "FILE004",
		},
		{
			name: "empty body",
			req: func(t *testing.T) *http.Request {
				return httptest.NewRequest(http.MethodPost, "/api/ingest", http.NoBody)
			},
			wantCode: http.StatusBadRequest,
			errCode:  "FILE004",
		},
		{
			name:     "empty file",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "e.csv", "\n\n", nil) },
			wantCode: http.StatusBadRequest,
			errCode:  "FILE005",
		},
		{
			name:     "unresolved required",
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "u.csv", "foo,bar\n1,2\n", nil) },
			wantCode: http.StatusUnprocessableEntity,
			errCode:  "MAP001",
		},
		{
			name: "overrides not json",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "g.csv", goodCSV, map[string]string{"overrides": "nope"})
			},
			wantCode: http.StatusUnprocessableEntity,
			errCode:  "MAP002",
		},
		{
			name:     "too large",
			opts:     core.Options{Read: core.ReadOptions{MaxBytes: 16}},
			req:      func(t *testing.T) *http.Request { return multipartRequest(t, "big.csv", strings.Repeat(goodCSV, 10), nil) },
			wantCode: http.StatusRequestEntityTooLarge,
			errCode:  "FILE001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(t, nil, tt.opts, nil)
			rec := do(t, srv, tt.req(t))
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.errCode, decode[ErrorResponse](t, rec).Code)
		})
	}
}

func TestIngestUnresolvedCarriesSummary(t *testing.T) {
	srv, _ := newTestServer(t, nil, core.Options{}, nil)
	rec := do(t, srv, multipartRequest(t, "u.csv", "foo,bar\n1,2\n", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	resp := decode[ErrorResponse](t, rec)
	require.NotNil(t, resp.Summary)
	assert.True(t, resp.Summary.Aborted)
	assert.Equal(t, []string{"product_name", "sales_amount", "order_date", "quantity"}, resp.Summary.UnresolvedRequired)
}

func TestIngestBusy(t *testing.T) {
	srv, svc := newTestServer(t, nil, core.Options{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond}, nil)
	require.True(t, svc.Limiter().TryAcquire())
	defer svc.Limiter().Release()

	rec := do(t, srv, multipartRequest(t, "b.csv", goodCSV, nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "ING001", decode[ErrorResponse](t, rec).Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRuns(t *testing.T) {
	srv, _ := newTestServer(t, nil, core.Options{}, nil)

	first := decode[core.RunSummary](t, do(t, srv, multipartRequest(t, "a.csv", goodCSV, nil)))
	second := decode[core.RunSummary](t, do(t, srv, multipartRequest(t, "b.csv", goodCSV, nil)))

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/runs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Runs []runListItem `json:"runs"`
	}](t, rec)
	require.Len(t, list.Runs, 2)
	assert.Equal(t, second.RunID, list.Runs[0].RunID)
	assert.Equal(t, first.RunID, list.Runs[1].RunID)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/runs/"+first.RunID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a.csv", decode[core.RunSummary](t, rec).File)

	rec = do(t, srv, httptest.NewRequest(http.MethodGet, "/api/runs/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RUN404", decode[ErrorResponse](t, rec).Code)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"k1", "k2"}}
	srv, _ := newTestServer(t, cfg, core.Options{}, nil)

	tests := []struct {
		key  string
		want int
	}{
		{"", http.StatusUnauthorized},
		{"wrong", http.StatusForbidden},
		{"k2", http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/catalog", nil)
		if tt.key != "" {
			req.Header.Set("X-API-Key", tt.key)
		}
		assert.Equal(t, tt.want, do(t, srv, req).Code, "key %q", tt.key)
	}

	// health stays open
	assert.Equal(t, http.StatusOK, do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}
	srv, _ := newTestServer(t, cfg, core.Options{}, nil)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	}
	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	assert.Equal(t, "RATE001", decode[ErrorResponse](t, rec).Code)

	other := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	other.RemoteAddr = "203.0.113.9:4000"
	assert.Equal(t, http.StatusOK, do(t, srv, other).Code)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrTooManyIngests, http.StatusServiceUnavailable},
		{&core.UnresolvedRequiredError{Fields: []string{"quantity"}}, http.StatusUnprocessableEntity},
		{core.ErrFileTooLarge, http.StatusRequestEntityTooLarge},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("invalid csv: bare quote"), http.StatusBadRequest},
		{errors.New("write batch: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorStatus(tt.err), tt.err.Error())
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	srv, _ := newTestServer(t, nil, core.Options{}, nil)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
