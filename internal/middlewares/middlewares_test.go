package middlewares

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-http-utils/headers"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Brownie44l1/rop-api/internal/roperrors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func mockErrorRouter(err error) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Error())
	r.GET("/", func(c *gin.Context) {
		if err != nil {
			c.Error(err) // nolint: errcheck
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		expect func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name: "no error",
			err:  nil,
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, http.StatusOK, w.Code)
			},
		},
		{
			name: "invalid input",
			err:  roperrors.New(roperrors.KindInvalidInput, "File must be an image"),
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert := assert.New(t)
				assert.Equal(http.StatusBadRequest, w.Code)

				var resp ErrorResponse
				assert.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal("File must be an image", resp.Detail)
				assert.Equal(w.Header().Get(RequestIDHeader), resp.RequestID)
			},
		},
		{
			name: "not ready",
			err:  roperrors.New(roperrors.KindNotReady, "Model not loaded - API not ready"),
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert := assert.New(t)
				assert.Equal(http.StatusServiceUnavailable, w.Code)

				var resp ErrorResponse
				assert.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal("Model not loaded - API not ready", resp.Detail)
			},
		},
		{
			name: "preprocess error",
			err:  roperrors.Wrap(roperrors.KindPreprocess, errors.New("image: unknown format"), "Error preprocessing image"),
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert := assert.New(t)
				assert.Equal(http.StatusInternalServerError, w.Code)

				var resp ErrorResponse
				assert.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal("Prediction failed: Error preprocessing image: image: unknown format", resp.Detail)
			},
		},
		{
			name: "unknown error",
			err:  errors.New("boom"),
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert := assert.New(t)
				assert.Equal(http.StatusInternalServerError, w.Code)

				var resp ErrorResponse
				assert.NoError(json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal("Prediction failed: boom", resp.Detail)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			mockErrorRouter(tc.err).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
			tc.expect(t, w)
		})
	}
}

func TestRequestID(t *testing.T) {
	existing := uuid.NewString()
	tests := []struct {
		name   string
		header string
		expect func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name:   "generated",
			header: "",
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
				assert.NoError(t, err)
			},
		},
		{
			name:   "kept from caller",
			header: existing,
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert.Equal(t, existing, w.Header().Get(RequestIDHeader))
			},
		},
		{
			name:   "invalid caller id replaced",
			header: "not-a-uuid",
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert := assert.New(t)
				id := w.Header().Get(RequestIDHeader)
				assert.NotEqual("not-a-uuid", id)
				_, err := uuid.Parse(id)
				assert.NoError(err)
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(RequestID())
			r.GET("/", func(c *gin.Context) {
				c.String(http.StatusOK, c.GetString(RequestIDKey))
			})

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())
			tc.expect(t, w)
		})
	}
}

func TestCORS(t *testing.T) {
	const origin = "http://localhost:3000"
	tests := []struct {
		name   string
		method string
		origin string
		expect func(t *testing.T, w *httptest.ResponseRecorder)
	}{
		{
			name:   "allowed origin",
			method: http.MethodGet,
			origin: origin,
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert := assert.New(t)
				assert.Equal(http.StatusOK, w.Code)
				assert.Equal(origin, w.Header().Get(headers.AccessControlAllowOrigin))
				assert.Equal("true", w.Header().Get(headers.AccessControlAllowCredentials))
			},
		},
		{
			name:   "allowed origin preflight",
			method: http.MethodOptions,
			origin: origin,
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert := assert.New(t)
				assert.Equal(http.StatusNoContent, w.Code)
				assert.Equal(origin, w.Header().Get(headers.AccessControlAllowOrigin))
			},
		},
		{
			name:   "other origin",
			method: http.MethodGet,
			origin: "http://evil.example.com",
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert := assert.New(t)
				assert.Equal(http.StatusForbidden, w.Code)
				assert.Empty(w.Header().Get(headers.AccessControlAllowOrigin))
			},
		},
		{
			name:   "no origin",
			method: http.MethodGet,
			origin: "",
			expect: func(t *testing.T, w *httptest.ResponseRecorder) {
				assert := assert.New(t)
				assert.Equal(http.StatusOK, w.Code)
				assert.Empty(w.Header().Get(headers.AccessControlAllowOrigin))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CORS(origin))
			r.GET("/", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(tc.method, "/", nil)
			if tc.origin != "" {
				req.Header.Set(headers.Origin, tc.origin)
			}
			if tc.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			tc.expect(t, w)
		})
	}
}
