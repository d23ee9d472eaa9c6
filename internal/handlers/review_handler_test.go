package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/daleribragimov115-spec/my-website/internal/models"
	"github.com/daleribragimov115-spec/my-website/internal/services"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// failingStore reports every operation as failed with err.
type failingStore struct {
	*models.MemoryRepo
	err error
}

func (f *failingStore) Insert(context.Context, *models.Review) (*models.Review, error) {
	return nil, f.err
}

func (f *failingStore) FindByStatus(context.Context, string) ([]*models.Review, error) {
	return nil, f.err
}

func (f *failingStore) Ping(context.Context) (time.Duration, error) { return 0, f.err }
func (f *failingStore) ReadyState() int                            { return 0 }

func newRouter(store models.ReviewStore) *gin.Engine {
	rs := services.NewReviewService(store, nil, services.ReviewOptions{RequirePhone: true, WriteTimeout: time.Second})
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(NotFound())
	r.NoMethod(MethodNotAllowed())
	r.GET("/api/health", Health(rs))
	r.GET("/api/comments", ListComments(rs))
	r.POST("/api/comments", CreateComment(rs))
	r.DELETE("/api/comments/:id", DeleteComment(rs))
	r.GET("/api/admin/comments", AdminListComments(rs))
	return r
}

func do(r http.Handler, method, path, body string, headers ...string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

const aliBody = `{"name":"Ali","phone":"+998901234567","rating":5,"comment":"Juda mazali sushi!"}`

func TestCreateComment_Success(t *testing.T) {
	r := newRouter(models.NewMemoryRepo())

	w, body := do(r, http.MethodPost, "/api/comments", aliBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if body["success"] != true || body["message"] != "review added successfully" {
		t.Fatalf("unexpected envelope: %v", body)
	}
	comment := body["comment"].(map[string]any)
	if _, ok := comment["phone"]; ok {
		t.Fatalf("phone must not be returned: %v", comment)
	}
	if comment["_id"] == "" || comment["status"] != "active" || comment["subscribed"] != true {
		t.Fatalf("unexpected comment: %v", comment)
	}
	if tok, _ := body["owner_token"].(string); tok == "" {
		t.Fatalf("owner token missing")
	}
}

func TestCreateComment_RatingAsString(t *testing.T) {
	r := newRouter(models.NewMemoryRepo())
	w, body := do(r, http.MethodPost, "/api/comments",
		`{"name":"Ali","phone":"+998 90 123 45 67","rating":"4","comment":"Juda mazali sushi!"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	if rating := body["comment"].(map[string]any)["rating"]; rating != float64(4) {
		t.Fatalf("rating = %v", rating)
	}
}

func TestCreateComment_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad json", `{"name":`, "invalid request body"},
		{"missing name", `{"phone":"+998901234567","rating":5,"comment":"Juda mazali sushi!"}`, "please fill in all fields"},
		{"missing phone", `{"name":"Ali","rating":5,"comment":"Juda mazali sushi!"}`, "please fill in all fields"},
		{"blank comment", `{"name":"Ali","phone":"+998901234567","rating":5,"comment":"   "}`, "please fill in all fields"},
		{"bad phone", `{"name":"Ali","phone":"12345","rating":5,"comment":"Juda mazali sushi!"}`, "please enter a valid phone number (10-13 digits)"},
		{"short comment", `{"name":"Ali","phone":"+998901234567","rating":5,"comment":"short"}`, "comment must be at least 10 characters long"},
		{"rating too high", `{"name":"Ali","phone":"+998901234567","rating":6,"comment":"Juda mazali sushi!"}`, "rating must be between 1 and 5"},
		{"phone checked before comment", `{"name":"Ali","phone":"abc","rating":9,"comment":"short"}`, "please enter a valid phone number (10-13 digits)"},
	}
	r := newRouter(models.NewMemoryRepo())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, body := do(r, http.MethodPost, "/api/comments", tc.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", w.Code)
			}
			if body["success"] != false || body["error"] != tc.want {
				t.Fatalf("error = %v, want %q", body["error"], tc.want)
			}
		})
	}

	_, list := do(r, http.MethodGet, "/api/comments", "")
	if list["total"] != float64(0) {
		t.Fatalf("rejected reviews must not be stored: %v", list)
	}
}

func TestCreateComment_StorageFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		want   string
	}{
		{"unavailable", models.ErrStorageUnavailable, http.StatusInternalServerError, msgUnavailable},
		{"timeout", models.ErrStorageTimeout, http.StatusGatewayTimeout, msgTimeout},
		{"other", errors.New("duplicate key"), http.StatusInternalServerError, "server error: duplicate key"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r := newRouter(&failingStore{MemoryRepo: models.NewMemoryRepo(), err: tc.err})
			w, body := do(r, http.MethodPost, "/api/comments", aliBody)
			if w.Code != tc.status || body["error"] != tc.want {
				t.Fatalf("got %d %v, want %d %q", w.Code, body["error"], tc.status, tc.want)
			}
		})
	}
}

func TestListComments_NewestFirst(t *testing.T) {
	r := newRouter(models.NewMemoryRepo())
	do(r, http.MethodPost, "/api/comments",
		`{"name":"Vali","phone":"+998901234568","rating":4,"comment":"Yaxshi restoran, tavsiya qilaman"}`)
	do(r, http.MethodPost, "/api/comments", aliBody)

	w, body := do(r, http.MethodGet, "/api/comments", "")
	if w.Code != http.StatusOK || body["success"] != true || body["total"] != float64(2) {
		t.Fatalf("unexpected listing: %d %v", w.Code, body)
	}
	comments := body["comments"].([]any)
	first := comments[0].(map[string]any)
	if first["name"] != "Ali" {
		t.Fatalf("latest review should come first, got %v", first["name"])
	}
	for _, c := range comments {
		if _, ok := c.(map[string]any)["phone"]; ok {
			t.Fatalf("public listing leaked a phone number")
		}
	}
}

func TestListComments_StoreDown(t *testing.T) {
	r := newRouter(&failingStore{MemoryRepo: models.NewMemoryRepo(), err: models.ErrStorageUnavailable})
	w, body := do(r, http.MethodGet, "/api/comments", "")
	if w.Code != http.StatusInternalServerError || body["success"] != false {
		t.Fatalf("unexpected response: %d %v", w.Code, body)
	}
}

func TestDeleteComment(t *testing.T) {
	r := newRouter(models.NewMemoryRepo())
	_, created := do(r, http.MethodPost, "/api/comments", aliBody)
	id := created["comment"].(map[string]any)["_id"].(string)
	token := created["owner_token"].(string)

	if w, _ := do(r, http.MethodDelete, "/api/comments/"+id, ""); w.Code != http.StatusForbidden {
		t.Fatalf("delete without token = %d", w.Code)
	}
	if w, _ := do(r, http.MethodDelete, "/api/comments/000000000000000000000000", "", OwnerTokenHeader, token); w.Code != http.StatusNotFound {
		t.Fatalf("delete of unknown id = %d", w.Code)
	}
	w, body := do(r, http.MethodDelete, "/api/comments/"+id, "", OwnerTokenHeader, token)
	if w.Code != http.StatusOK || body["message"] != "review deleted" {
		t.Fatalf("delete = %d %v", w.Code, body)
	}

	_, list := do(r, http.MethodGet, "/api/comments", "")
	if list["total"] != float64(0) {
		t.Fatalf("deleted review still listed")
	}
	_, admin := do(r, http.MethodGet, "/api/admin/comments", "")
	all := admin["comments"].([]any)
	if len(all) != 1 {
		t.Fatalf("admin listing should include deleted reviews: %v", admin)
	}
	entry := all[0].(map[string]any)
	if entry["status"] != "deleted" || entry["phone"] != "+998901234567" {
		t.Fatalf("unexpected admin entry: %v", entry)
	}
	if _, ok := entry["owner_token_hash"]; ok {
		t.Fatalf("owner token hash must never be serialized")
	}
}

func TestHealth(t *testing.T) {
	w, body := do(newRouter(models.NewMemoryRepo()), http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK || body["message"] != "server is running" {
		t.Fatalf("unexpected health: %d %v", w.Code, body)
	}
	db := body["database"].(map[string]any)
	if db["status"] != "connected" || db["readyState"] != float64(1) {
		t.Fatalf("unexpected database block: %v", db)
	}

	w, body = do(newRouter(&failingStore{MemoryRepo: models.NewMemoryRepo(), err: models.ErrStorageUnavailable}), http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health must stay 200 when storage is down, got %d", w.Code)
	}
	db = body["database"].(map[string]any)
	if db["status"] != "disconnected" || db["readyState"] != float64(0) {
		t.Fatalf("unexpected database block: %v", db)
	}
	if _, ok := db["ping"]; ok {
		t.Fatalf("ping must be omitted when the probe failed")
	}
}

func TestFallbackRoutes(t *testing.T) {
	r := newRouter(models.NewMemoryRepo())
	w, body := do(r, http.MethodGet, "/api/nope", "")
	if w.Code != http.StatusNotFound || body["error"] != "not found" || body["success"] != false {
		t.Fatalf("unexpected 404: %d %v", w.Code, body)
	}
	w, body = do(r, http.MethodPut, "/api/comments", "")
	if w.Code != http.StatusMethodNotAllowed || body["success"] != false {
		t.Fatalf("unexpected 405: %d %v", w.Code, body)
	}
}

func TestCreateThenList_PlainDigitPhone(t *testing.T) {
	r := newRouter(models.NewMemoryRepo())
	do(r, http.MethodPost, "/api/comments", `{"name":"Vali","phone":"998901234568","rating":3,"comment":"Oshxona juda toza ekan"}`)

	w, body := do(r, http.MethodPost, "/api/comments",
		`{"name":"Ali","phone":"998901234567","rating":5,"comment":"Great sushi, will come again!"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}
	comment := body["comment"].(map[string]any)
	if comment["rating"] != float64(5) {
		t.Fatalf("rating = %v", comment["rating"])
	}
	if _, ok := comment["phone"]; ok {
		t.Fatalf("phone must not be returned")
	}

	_, first := do(r, http.MethodGet, "/api/comments", "")
	_, second := do(r, http.MethodGet, "/api/comments", "")
	a, _ := json.Marshal(first["comments"])
	b, _ := json.Marshal(second["comments"])
	if string(a) != string(b) {
		t.Fatalf("consecutive listings differ:\n%s\n%s", a, b)
	}
	if name := first["comments"].([]any)[0].(map[string]any)["name"]; name != "Ali" {
		t.Fatalf("first listed = %v, want Ali", name)
	}
}
