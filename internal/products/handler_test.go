package products

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func newTestRouter(ext *fakeExtractor) (*gin.Engine, *memStore) {
	gin.SetMode(gin.TestMode)
	store := newMemStore()
	svc := NewService(store, ext, discardLogger())
	h := NewHandler(svc, discardLogger())

	r := gin.New()
	h.Register(r.Group("/api"))
	return r, store
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateProductEndpoint(t *testing.T) {
	r, _ := newTestRouter(&fakeExtractor{name: "Widget", price: 999.0})

	w := doRequest(r, http.MethodPost, "/api/products", `{"url":"https://www.ozon.ru/product/x"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var p Product
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if p.Name != "Widget" || p.Domain != "www.ozon.ru" || len(p.Prices) != 1 {
		t.Fatalf("unexpected created product: %+v", p)
	}
}

func TestCreateProductDuplicateEndpoint(t *testing.T) {
	r, _ := newTestRouter(&fakeExtractor{name: "Widget", price: 999.0})

	body := `{"url":"https://www.ozon.ru/product/x"}`
	if w := doRequest(r, http.MethodPost, "/api/products", body); w.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/products", body); w.Code != http.StatusConflict {
		t.Fatalf("duplicate create: expected 409, got %d", w.Code)
	}
}

func TestCreateProductScrapeFailureEndpoint(t *testing.T) {
	r, _ := newTestRouter(&fakeExtractor{err: fmt.Errorf("unsupported domain")})

	w := doRequest(r, http.MethodPost, "/api/products", `{"url":"https://unknown.example.com/p"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCreateProductInvalidPayload(t *testing.T) {
	r, _ := newTestRouter(&fakeExtractor{})

	if w := doRequest(r, http.MethodPost, "/api/products", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing url, got %d", w.Code)
	}
}

func TestGetProductEndpoint(t *testing.T) {
	r, _ := newTestRouter(&fakeExtractor{name: "Widget", price: 999.0})

	doRequest(r, http.MethodPost, "/api/products", `{"url":"https://www.ozon.ru/product/x"}`)

	if w := doRequest(r, http.MethodGet, "/api/products/1", ""); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/products/99", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/api/products/abc", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}
}

func TestListProductsEndpoint(t *testing.T) {
	r, _ := newTestRouter(&fakeExtractor{name: "Widget", price: 999.0})

	w := doRequest(r, http.MethodGet, "/api/products", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != "[]" {
		t.Fatalf("expected empty list, got %s", body)
	}

	doRequest(r, http.MethodPost, "/api/products", `{"url":"https://www.ozon.ru/product/x"}`)

	var list []Product
	w = doRequest(r, http.MethodGet, "/api/products", "")
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 || len(list[0].Prices) != 1 {
		t.Fatalf("unexpected list: %+v", list)
	}
}

func TestDeleteProductEndpoint(t *testing.T) {
	r, store := newTestRouter(&fakeExtractor{name: "Widget", price: 999.0})

	doRequest(r, http.MethodPost, "/api/products", `{"url":"https://www.ozon.ru/product/x"}`)

	if w := doRequest(r, http.MethodDelete, "/api/products/1", ""); w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if rows := store.historyRows(1); rows != 0 {
		t.Fatalf("expected cascaded history delete, got %d rows", rows)
	}
	if w := doRequest(r, http.MethodDelete, "/api/products/1", ""); w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}
