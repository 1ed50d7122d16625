package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/freight-quote-service/internal/adapters/http/dto"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/config"
	"github.com/jsamuelsen/freight-quote-service/internal/platform/logging"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testAuth = &config.AuthConfig{SubjectHeader: "X-User-ID", RolesHeader: "X-User-Roles", AdminRole: "pricing-admin"}

func serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
	}{
		{name: "generated", incoming: ""},
		{name: "propagated", incoming: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var fromGin, fromCtx string

			r := gin.New()
			r.Use(RequestID())
			r.GET("/", func(c *gin.Context) {
				fromGin = GetRequestID(c)
				fromCtx = RequestIDFromContext(c.Request.Context())
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}

			w := serve(r, req)

			echoed := w.Header().Get(HeaderRequestID)
			assert.Equal(t, echoed, fromGin)
			assert.Equal(t, echoed, fromCtx)

			if tt.incoming != "" {
				assert.Equal(t, tt.incoming, echoed)
			} else {
				_, err := uuid.Parse(echoed)
				require.NoError(t, err)
			}
		})
	}
}

func TestCorrelationID(t *testing.T) {
	var fromCtx string

	r := gin.New()
	r.Use(CorrelationID())
	r.GET("/", func(c *gin.Context) {
		fromCtx = CorrelationIDFromContext(c.Request.Context())
		assert.Equal(t, fromCtx, GetCorrelationID(c))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCorrelationID, "corr-9")

	w := serve(r, req)

	assert.Equal(t, "corr-9", fromCtx)
	assert.Equal(t, "corr-9", w.Header().Get(HeaderCorrelationID))
}

func TestIDsFromContext(t *testing.T) {
	ctx := ContextWithCorrelationID(ContextWithRequestID(context.Background(), "r"), "c")

	assert.Equal(t, "r", RequestIDFromContext(ctx))
	assert.Equal(t, "c", CorrelationIDFromContext(ctx))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestExtractClaims(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.AuthConfig
		headers map[string]string
		want    *Claims
	}{
		{
			name:    "default headers",
			headers: map[string]string{"X-User-ID": "acme", "X-User-Roles": "customer, pricing-admin,,"},
			want:    &Claims{Subject: "acme", Roles: []string{"customer", "pricing-admin"}},
		},
		{
			name:    "custom headers",
			cfg:     &config.AuthConfig{SubjectHeader: "X-Sub", RolesHeader: "X-Groups"},
			headers: map[string]string{"X-Sub": "globex", "X-Groups": "ops", "X-User-ID": "ignored"},
			want:    &Claims{Subject: "globex", Roles: []string{"ops"}},
		},
		{
			name: "anonymous",
			want: &Claims{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, ExtractClaims(c, tt.cfg))
		})
	}
}

func TestClaims_HasRole(t *testing.T) {
	claims := &Claims{Roles: []string{"customer", "pricing-admin"}}

	assert.True(t, claims.HasRole("pricing-admin"))
	assert.False(t, claims.HasRole("ops"))
	assert.True(t, claims.HasAnyRole("ops", "customer"))
	assert.False(t, claims.HasAnyRole())

	var none *Claims
	assert.False(t, none.HasRole("customer"))
}

func TestIdentify(t *testing.T) {
	var subject string

	r := gin.New()
	r.Use(Identify(testAuth))
	r.GET("/", func(c *gin.Context) { subject = Subject(c) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "acme")

	w := serve(r, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acme", subject)

	w = serve(r, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, subject)
}

func TestRequireAuth(t *testing.T) {
	r := gin.New()
	r.Use(RequireAuth(testAuth))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-ID", "acme")
	assert.Equal(t, http.StatusNoContent, serve(r, req).Code)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		roles      string
		wantStatus int
	}{
		{name: "admin", roles: "pricing-admin", wantStatus: http.StatusNoContent},
		{name: "admin among others", roles: "customer,pricing-admin", wantStatus: http.StatusNoContent},
		{name: "customer only", roles: "customer", wantStatus: http.StatusForbidden},
		{name: "no roles", wantStatus: http.StatusForbidden},
	}

	r := gin.New()
	r.Use(Identify(testAuth))
	r.POST("/admin", RequireRole(testAuth, "pricing-admin"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/admin", nil)
			req.Header.Set("X-User-ID", "u1")
			req.Header.Set("X-User-Roles", tt.roles)

			w := serve(r, req)

			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantStatus == http.StatusForbidden {
				var resp dto.ErrorResponse
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, dto.ErrorCodeForbidden, resp.Error.Code)
				assert.Contains(t, resp.Error.Message, "pricing-admin")
			}
		})
	}
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Request = c.Request.WithContext(logging.WithContext(c.Request.Context(), logger))
		c.Next()
	})
	r.Use(RequestID(), Logging("/skip"))
	r.GET("/quotes/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })
	r.GET("/skip", func(c *gin.Context) {})
	r.GET("/-/live", func(c *gin.Context) {})

	req := httptest.NewRequest(http.MethodGet, "/quotes/Q-1", nil)
	req.Header.Set(HeaderRequestID, "req-log")
	serve(r, req)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "request completed", line["msg"])
	assert.Equal(t, "/quotes/:id", line["route"])
	assert.InDelta(t, 404, line["status"], 0)
	assert.Equal(t, "req-log", line["request_id"])

	buf.Reset()
	serve(r, httptest.NewRequest(http.MethodGet, "/skip", nil))
	serve(r, httptest.NewRequest(http.MethodGet, "/-/live", nil))
	assert.Empty(t, buf.String())
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(Recovery())
	r.GET("/panic", func(*gin.Context) { panic("boom") })
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial")
		panic("after write")
	})

	w := serve(r, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrorCodeInternal, resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "boom")

	w = serve(r, httptest.NewRequest(http.MethodGet, "/late", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "partial", w.Body.String())
}

func TestDeadline(t *testing.T) {
	var (
		deadline time.Time
		bounded  bool
	)

	r := gin.New()
	r.Use(Deadline(50*time.Millisecond, "/quotes/:id/document"))
	r.GET("/quotes", func(c *gin.Context) { deadline, bounded = c.Request.Context().Deadline() })
	r.GET("/quotes/:id/document", func(c *gin.Context) { _, bounded = c.Request.Context().Deadline() })

	before := time.Now()
	serve(r, httptest.NewRequest(http.MethodGet, "/quotes", nil))

	require.True(t, bounded)
	assert.WithinDuration(t, before.Add(50*time.Millisecond), deadline, 40*time.Millisecond)

	serve(r, httptest.NewRequest(http.MethodGet, "/quotes/Q-1/document", nil))
	assert.False(t, bounded)
}
