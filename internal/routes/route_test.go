package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daleribragimov115-spec/my-website/internal/config"
	"github.com/daleribragimov115-spec/my-website/internal/container"
	"github.com/daleribragimov115-spec/my-website/internal/handlers"
	"github.com/daleribragimov115-spec/my-website/internal/helpers"
	"github.com/daleribragimov115-spec/my-website/internal/models"
	"github.com/daleribragimov115-spec/my-website/internal/services"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContainer(t *testing.T, allowDelete bool, verifier *helpers.AdminVerifier) *container.Container {
	t.Helper()
	cfg := &config.Config{
		APIBasePath:    "/api",
		AllowedOrigins: []string{"http://localhost:3000"},
		RateRPS:        100,
		RateBurst:      100,
		Reviews:        config.ReviewsConfig{RequirePhone: true, AllowDelete: allowDelete, WriteTimeout: time.Second},
		OTEL:           config.OTELConfig{ServiceName: "reviews-test"},
	}
	store := models.NewMemoryRepo()
	return &container.Container{
		Config:        cfg,
		Store:         store,
		AdminVerifier: verifier,
		ReviewService: services.NewReviewService(store, nil, services.ReviewOptions{RequirePhone: true, WriteTimeout: time.Second}),
	}
}

func serve(r http.Handler, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

const review = `{"name":"Ali","phone":"+998901234567","rating":5,"comment":"Juda mazali sushi!"}`

func TestRoutes_AliasesShareStorage(t *testing.T) {
	r := SetupRoutes(testContainer(t, true, nil))

	if w, _ := serve(r, http.MethodPost, "/api/reviews", review, nil); w.Code != http.StatusCreated {
		t.Fatalf("create via /reviews = %d", w.Code)
	}
	w, body := serve(r, http.MethodGet, "/api/comments", "", nil)
	if w.Code != http.StatusOK || body["total"] != float64(1) {
		t.Fatalf("list via /comments = %d %v", w.Code, body)
	}
}

func TestRoutes_Health(t *testing.T) {
	r := SetupRoutes(testContainer(t, true, nil))
	for _, path := range []string{"/api/health", "/health"} {
		w, body := serve(r, http.MethodGet, path, "", nil)
		if w.Code != http.StatusOK || body["success"] != true {
			t.Fatalf("%s = %d %v", path, w.Code, body)
		}
	}
}

func TestRoutes_Fallbacks(t *testing.T) {
	r := SetupRoutes(testContainer(t, true, nil))

	w, body := serve(r, http.MethodGet, "/api/unknown", "", nil)
	if w.Code != http.StatusNotFound || body["error"] != "not found" {
		t.Fatalf("unknown route = %d %v", w.Code, body)
	}
	w, _ = serve(r, http.MethodPatch, "/api/comments", "", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("wrong method = %d", w.Code)
	}
}

func TestRoutes_AdminNotMountedWithoutVerifier(t *testing.T) {
	r := SetupRoutes(testContainer(t, true, nil))
	if w, _ := serve(r, http.MethodGet, "/api/admin/comments", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("admin route should not exist, got %d", w.Code)
	}
}

func TestRoutes_AdminGated(t *testing.T) {
	v, err := helpers.NewAdminVerifier(t.Context(), "s3cret", "")
	if err != nil {
		t.Fatalf("NewAdminVerifier: %v", err)
	}
	r := SetupRoutes(testContainer(t, true, v))
	serve(r, http.MethodPost, "/api/comments", review, nil)

	if w, _ := serve(r, http.MethodGet, "/api/admin/comments", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("no token = %d", w.Code)
	}

	tok, _ := helpers.MintAdminToken("s3cret", "ops", time.Minute)
	w, body := serve(r, http.MethodGet, "/api/admin/comments", "", map[string]string{"Authorization": "Bearer " + tok})
	if w.Code != http.StatusOK || body["total"] != float64(1) {
		t.Fatalf("admin list = %d %v", w.Code, body)
	}
	first := body["comments"].([]any)[0].(map[string]any)
	if first["phone"] != "+998901234567" {
		t.Fatalf("admin listing should include phone: %v", first)
	}
}

func TestRoutes_DeleteToggle(t *testing.T) {
	r := SetupRoutes(testContainer(t, false, nil))
	_, created := serve(r, http.MethodPost, "/api/comments", review, nil)
	id := created["comment"].(map[string]any)["_id"].(string)

	w, _ := serve(r, http.MethodDelete, "/api/comments/"+id, "", map[string]string{handlers.OwnerTokenHeader: created["owner_token"].(string)})
	if w.Code == http.StatusOK {
		t.Fatalf("delete must be unavailable when disabled")
	}
}

func TestRoutes_CORSPreflight(t *testing.T) {
	r := SetupRoutes(testContainer(t, true, nil))
	w, _ := serve(r, http.MethodOptions, "/api/comments", "", map[string]string{
		"Origin":                        "http://localhost:3000",
		"Access-Control-Request-Method": http.MethodPost,
	})
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("allow origin = %q", got)
	}
}
