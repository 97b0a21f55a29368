package http_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/event-pos/internal/apperr"
	"github.com/tuanvumaihuynh/event-pos/internal/config"
	posthttp "github.com/tuanvumaihuynh/event-pos/internal/http"
	"github.com/tuanvumaihuynh/event-pos/internal/http/apierr"
	"github.com/tuanvumaihuynh/event-pos/internal/service"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/backend"
	"github.com/tuanvumaihuynh/event-pos/internal/storage/imagestore"
	"github.com/tuanvumaihuynh/event-pos/pkg/correlationid"
	"github.com/tuanvumaihuynh/event-pos/pkg/validator"
)

const adminSecret = "s3cret"

type testServer struct {
	handler http.Handler
	fs      afero.Fs
}

func newTestServer(t *testing.T, secret string) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := backend.NewMemory()
	t.Cleanup(b.Close)

	imageCfg := config.Image{BaseURL: "/images", MaxBytes: 1024}
	fs := afero.NewMemMapFs()
	images := imagestore.NewFSStore(fs, imageCfg.BaseURL, imageCfg.MaxBytes)
	v := validator.MustNewDefaultValidator()

	productSvc := service.NewProductService(logger, b.UnitOfWork, b.Products, images, v)
	saleSvc, err := service.NewSaleService(config.Sale{
		MaxAttempts:    3,
		RetryBaseDelay: time.Millisecond,
		Timezone:       "UTC",
	}, logger, b.UnitOfWork, b.Products, b.Sales, v)
	require.NoError(t, err)

	svc := posthttp.New(
		config.HTTP{Swagger: true, AllowedOrigins: []string{"*"}},
		imageCfg,
		config.Admin{Secret: secret},
		logger,
		posthttp.Deps{
			ProductSvc: productSvc,
			SaleSvc:    saleSvc,
			Health:     b.Health,
			Images:     images.Handler(),
		},
	)

	return &testServer{handler: svc.Handler(), fs: fs}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp := httptest.NewRecorder()
	s.handler.ServeHTTP(resp, req)
	return resp
}

func decode[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &v), resp.Body.String())
	return v
}

func (s *testServer) createProduct(t *testing.T, name, price string, sizes map[string]int) posthttp.ProductResponse {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/products", map[string]any{
		"name":  name,
		"price": price,
		"sizes": sizes,
	})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[posthttp.ProductResponse](t, resp)
}

func TestProductRoutes(t *testing.T) {
	s := newTestServer(t, adminSecret)

	t.Run("Should create and get a product", func(t *testing.T) {
		created := s.createProduct(t, "Camiseta", "49.90", map[string]int{"M": 2, "G": 1})
		assert.Equal(t, "Camiseta", created.Name)
		assert.Equal(t, "49.9", created.Price.String())
		assert.Equal(t, "R$ 49.90", created.PriceLabel)
		assert.Equal(t, 3, created.TotalStock)

		resp := s.do(t, http.MethodGet, "/products/"+created.ID.String(), nil)
		require.Equal(t, http.StatusOK, resp.Code)
		got := decode[posthttp.ProductResponse](t, resp)
		assert.Equal(t, created.ID, got.ID)
		assert.Equal(t, map[string]int{"M": 2, "G": 1}, got.Sizes)
	})

	t.Run("Should list products by name", func(t *testing.T) {
		s := newTestServer(t, adminSecret)
		s.createProduct(t, "Zebra", "1", nil)
		s.createProduct(t, "Alpaca", "2", nil)

		resp := s.do(t, http.MethodGet, "/products", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		items := decode[[]posthttp.ProductResponse](t, resp)
		require.Len(t, items, 2)
		assert.Equal(t, "Alpaca", items[0].Name)
		assert.Equal(t, "Zebra", items[1].Name)
	})

	t.Run("Should reject invalid bodies", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/products", map[string]any{"name": "", "price": "1"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = s.do(t, http.MethodPost, "/products", map[string]any{"name": "X", "price": "-1"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = s.do(t, http.MethodPost, "/products", map[string]any{"name": "X", "price": "1", "unknown": true})
		assert.Equal(t, http.StatusBadRequest, resp.Code)

		resp = s.do(t, http.MethodPost, "/products", map[string]any{"name": "X", "price": "10.005"})
		assert.Equal(t, http.StatusBadRequest, resp.Code)
		assert.Equal(t, apperr.ValidationErrorCode, decode[apierr.ErrorResponse](t, resp).Code)
	})

	t.Run("Should reject a malformed product id", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/products/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should return 404 for a missing product", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/products/0190a7b4-0000-7000-8000-000000000000", nil)
		assert.Equal(t, http.StatusNotFound, resp.Code)
		res := decode[map[string]any](t, resp)
		assert.Equal(t, "PRODUCT_NOT_FOUND", res["code"])
	})

	t.Run("Should patch only the given fields", func(t *testing.T) {
		created := s.createProduct(t, "Bermuda", "30", map[string]int{"P": 1})

		resp := s.do(t, http.MethodPatch, "/products/"+created.ID.String(), map[string]any{"price": "35.5"})
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		got := decode[posthttp.ProductResponse](t, resp)
		assert.Equal(t, "Bermuda", got.Name)
		assert.Equal(t, "35.5", got.Price.String())
		assert.Equal(t, map[string]int{"P": 1}, got.Sizes)
	})

	t.Run("Should delete idempotently", func(t *testing.T) {
		created := s.createProduct(t, "Bone", "20", nil)
		path := "/products/" + created.ID.String()

		assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, nil).Code)
		assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, path, nil).Code)
		assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, path, nil).Code)
	})
}

func multipartImage(t *testing.T, field, filename, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	return &buf, mw.FormDataContentType()
}

func TestUploadProductImage(t *testing.T) {
	s := newTestServer(t, adminSecret)
	created := s.createProduct(t, "Jaqueta", "120", map[string]int{"G": 1})
	path := "/products/" + created.ID.String() + "/image"

	t.Run("Should store and serve the image", func(t *testing.T) {
		body, contentType := multipartImage(t, "image", "photo.png", "image/png", []byte("png-bytes"))
		req := httptest.NewRequest(http.MethodPut, path, body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		s.handler.ServeHTTP(resp, req)

		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		got := decode[posthttp.ProductResponse](t, resp)
		require.NotNil(t, got.ImageURL)
		assert.Equal(t, "/images/products/"+created.ID.String()+".png", *got.ImageURL)

		imgResp := s.do(t, http.MethodGet, *got.ImageURL, nil)
		require.Equal(t, http.StatusOK, imgResp.Code)
		assert.Equal(t, "png-bytes", imgResp.Body.String())
	})

	t.Run("Should reject unsupported formats", func(t *testing.T) {
		body, contentType := multipartImage(t, "image", "notes.txt", "text/plain", []byte("hello"))
		req := httptest.NewRequest(http.MethodPut, path, body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		s.handler.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should reject oversized images", func(t *testing.T) {
		body, contentType := multipartImage(t, "image", "big.png", "image/png", bytes.Repeat([]byte("x"), 2048))
		req := httptest.NewRequest(http.MethodPut, path, body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		s.handler.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})

	t.Run("Should require the image field", func(t *testing.T) {
		body, contentType := multipartImage(t, "file", "photo.png", "image/png", []byte("png"))
		req := httptest.NewRequest(http.MethodPut, path, body)
		req.Header.Set("Content-Type", contentType)
		resp := httptest.NewRecorder()
		s.handler.ServeHTTP(resp, req)

		assert.Equal(t, http.StatusBadRequest, resp.Code)
	})
}

func TestRecordSalesRoute(t *testing.T) {
	s := newTestServer(t, adminSecret)

	t.Run("Should record every line", func(t *testing.T) {
		p := s.createProduct(t, "Camiseta", "10", map[string]int{"M": 3, "G": 2})
		resp := s.do(t, http.MethodPost, "/products/"+p.ID.String()+"/sales", map[string]any{
			"items": []map[string]any{{"size": "M", "quantity": 2}, {"size": "G", "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())

		res := decode[posthttp.RecordSalesResponse](t, resp)
		assert.Equal(t, "partial", res.Mode)
		assert.Equal(t, 0, res.Failed)
		require.Len(t, res.Results, 2)
		require.NotNil(t, res.Results[0].Sale)
		assert.Equal(t, "20", res.Results[0].Sale.Total.String())
		assert.Equal(t, "R$ 20.00", res.Results[0].Sale.TotalLabel)

		got := decode[posthttp.ProductResponse](t, s.do(t, http.MethodGet, "/products/"+p.ID.String(), nil))
		assert.Equal(t, map[string]int{"M": 1, "G": 1}, got.Sizes)
	})

	t.Run("Should report partial failures with 207", func(t *testing.T) {
		p := s.createProduct(t, "Calca", "10", map[string]int{"M": 1})
		resp := s.do(t, http.MethodPost, "/products/"+p.ID.String()+"/sales", map[string]any{
			"mode":  "partial",
			"items": []map[string]any{{"size": "M", "quantity": 1}, {"size": "M", "quantity": 1}},
		})
		require.Equal(t, http.StatusMultiStatus, resp.Code, resp.Body.String())

		res := decode[posthttp.RecordSalesResponse](t, resp)
		assert.Equal(t, 1, res.Failed)
		require.NotNil(t, res.Results[1].Error)
		assert.Equal(t, "INSUFFICIENT_STOCK", res.Results[1].Error.Code)
		require.NotNil(t, res.Results[1].Available)
		assert.Equal(t, 0, *res.Results[1].Available)
	})

	t.Run("Should answer 422 when no line commits", func(t *testing.T) {
		p := s.createProduct(t, "Meia", "5", map[string]int{"P": 0})
		resp := s.do(t, http.MethodPost, "/products/"+p.ID.String()+"/sales", map[string]any{
			"items": []map[string]any{{"size": "P", "quantity": 1}},
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())
	})

	t.Run("Should roll back every line in all_or_nothing mode", func(t *testing.T) {
		p := s.createProduct(t, "Saia", "10", map[string]int{"M": 1, "G": 0})
		resp := s.do(t, http.MethodPost, "/products/"+p.ID.String()+"/sales", map[string]any{
			"mode":  "all_or_nothing",
			"items": []map[string]any{{"size": "M", "quantity": 1}, {"size": "G", "quantity": 1}},
		})
		require.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())

		errRes := decode[apierr.ErrorResponse](t, resp)
		assert.Equal(t, apperr.InsufficientStockCode, errRes.Code)
		require.NotNil(t, errRes.Size)
		require.NotNil(t, errRes.Available)
		assert.Equal(t, "G", *errRes.Size)
		assert.Equal(t, 0, *errRes.Available)

		got := decode[posthttp.ProductResponse](t, s.do(t, http.MethodGet, "/products/"+p.ID.String(), nil))
		assert.Equal(t, 1, got.Sizes["M"])
	})

	t.Run("Should validate the batch", func(t *testing.T) {
		p := s.createProduct(t, "Luva", "10", map[string]int{"M": 1})
		path := "/products/" + p.ID.String() + "/sales"

		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, path, map[string]any{"items": []any{}}).Code)
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, path, map[string]any{
			"items": []map[string]any{{"size": "M", "quantity": 0}},
		}).Code)
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPost, path, map[string]any{
			"mode":  "sometimes",
			"items": []map[string]any{{"size": "M", "quantity": 1}},
		}).Code)
	})

	t.Run("Should return 404 for a missing product", func(t *testing.T) {
		resp := s.do(t, http.MethodPost, "/products/0190a7b4-0000-7000-8000-000000000000/sales", map[string]any{
			"items": []map[string]any{{"size": "M", "quantity": 1}},
		})
		assert.Equal(t, http.StatusNotFound, resp.Code)
	})
}

func TestSalesRoutes(t *testing.T) {
	s := newTestServer(t, adminSecret)
	p := s.createProduct(t, "Camiseta", "10", map[string]int{"M": 10, "G": 10})
	salesPath := "/products/" + p.ID.String() + "/sales"

	for _, item := range []map[string]any{
		{"size": "M", "quantity": 3},
		{"size": "G", "quantity": 1},
		{"size": "M", "quantity": 2},
	} {
		resp := s.do(t, http.MethodPost, salesPath, map[string]any{"items": []map[string]any{item}})
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	}

	t.Run("Should list the ledger newest first", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/sales", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		items := decode[[]posthttp.SaleResponse](t, resp)
		require.Len(t, items, 3)
		assert.Equal(t, 2, items[0].Quantity)
		assert.Equal(t, 3, items[2].Quantity)
	})

	t.Run("Should filter by range", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/sales?range=yesterday", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Empty(t, decode[[]posthttp.SaleResponse](t, resp))

		resp = s.do(t, http.MethodGet, "/sales?range=today", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Len(t, decode[[]posthttp.SaleResponse](t, resp), 3)

		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/sales?range=lastweek", nil).Code)
	})

	t.Run("Should compute stats", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/sales/stats?top=1", nil)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

		stats := decode[posthttp.SalesStatsResponse](t, resp)
		assert.Equal(t, "all", stats.Range)
		assert.Equal(t, 3, stats.Totals.Count)
		assert.Equal(t, 6, stats.Totals.TotalQuantity)
		assert.Equal(t, "60", stats.Totals.TotalRevenue.String())
		assert.Equal(t, "R$ 60.00", stats.Totals.RevenueLabel)
		require.Len(t, stats.Rollup, 2)
		require.Len(t, stats.Top, 1)
		assert.Equal(t, "M", stats.Top[0].Size)
		assert.Equal(t, 5, stats.Top[0].Quantity)
		require.Len(t, stats.Bottom, 1)
		assert.Equal(t, "G", stats.Bottom[0].Size)

		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/sales/stats?top=0", nil).Code)
		assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/sales/stats?top=abc", nil).Code)
	})

	t.Run("Should guard destructive routes", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodDelete, "/sales", nil).Code)
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodDelete, "/sales", nil, "Authorization", "Bearer wrong").Code)
		assert.Equal(t, http.StatusUnauthorized, s.do(t, http.MethodPost, "/sales/demo", nil, "Authorization", adminSecret).Code)
	})

	t.Run("Should seed and clear the ledger", func(t *testing.T) {
		auth := []string{"Authorization", "Bearer " + adminSecret}

		resp := s.do(t, http.MethodPost, "/sales/demo", nil, auth...)
		require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
		seeded := decode[posthttp.SeedDemoSalesResponse](t, resp)
		assert.Equal(t, 15, seeded.Today)
		assert.Equal(t, 10, seeded.Yesterday)

		resp = s.do(t, http.MethodDelete, "/sales", nil, auth...)
		require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
		assert.Equal(t, int64(28), decode[posthttp.ClearSalesResponse](t, resp).Deleted)

		resp = s.do(t, http.MethodDelete, "/sales", nil, auth...)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, int64(0), decode[posthttp.ClearSalesResponse](t, resp).Deleted)
	})
}

func TestAdminDisabled(t *testing.T) {
	s := newTestServer(t, "")

	resp := s.do(t, http.MethodDelete, "/sales", nil, "Authorization", "Bearer anything")
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, "ADMIN_DISABLED", decode[map[string]any](t, resp)["code"])
}

func TestOperationalRoutes(t *testing.T) {
	s := newTestServer(t, adminSecret)

	t.Run("Should report health", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/healthz", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Equal(t, "ok", decode[posthttp.HealthResponse](t, resp).Status)
	})

	t.Run("Should echo the correlation id", func(t *testing.T) {
		resp := s.do(t, http.MethodGet, "/healthz", nil, correlationid.Header, "abc-123")
		assert.Equal(t, "abc-123", resp.Header().Get(correlationid.Header))

		resp = s.do(t, http.MethodGet, "/healthz", nil)
		assert.NotEmpty(t, resp.Header().Get(correlationid.Header))
	})

	t.Run("Should expose metrics by route", func(t *testing.T) {
		s.do(t, http.MethodGet, "/products", nil)

		resp := s.do(t, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "pos_http_requests_total")
		assert.Contains(t, resp.Body.String(), `route="/products`)
	})

	t.Run("Should serve the docs", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/docs", nil).Code)
		assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/docs/openapi.yml", nil).Code)
	})
}
