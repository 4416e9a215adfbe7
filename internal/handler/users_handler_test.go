package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/octobees/usersapi/internal/entity"
)

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed to decode response %q: %v", raw, err)
	}
	return payload
}

func TestUsersHandler_Scenario(t *testing.T) {
	f := newUsersFixture(t)
	regular := f.token(t, 1, entity.RoleRegular)
	admin := f.token(t, 1, entity.RoleAdmin)

	rec := f.do(http.MethodPut, "/api/users/2", `{"name":"X"}`, regular)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("regular updating other: expected 403, got %d %s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec.Body.Bytes())
	if body["error"] != "Forbidden" || body["message"] != "You can only update your own profile" {
		t.Fatalf("unexpected forbidden body: %v", body)
	}

	rec = f.do(http.MethodPut, "/api/users/2", `{"name":"X"}`, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin updating other: expected 200, got %d %s", rec.Code, rec.Body)
	}
	body = decodeBody(t, rec.Body.Bytes())
	user, _ := body["user"].(map[string]any)
	if body["message"] != "User updated successfully" || user["name"] != "X" {
		t.Fatalf("unexpected update body: %v", body)
	}

	rec = f.do(http.MethodPut, "/api/users/1", `{"role":"admin"}`, regular)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("regular promoting self: expected 403, got %d", rec.Code)
	}
	body = decodeBody(t, rec.Body.Bytes())
	if body["message"] != "Only admins can change user roles" {
		t.Fatalf("unexpected forbidden body: %v", body)
	}

	rec = f.do(http.MethodDelete, "/api/users/999", "", admin)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("deleting missing user: expected 404, got %d", rec.Code)
	}
	if body = decodeBody(t, rec.Body.Bytes()); body["error"] != "User not found" {
		t.Fatalf("unexpected not found body: %v", body)
	}

	rec = f.do(http.MethodGet, "/api/users/abc", "", regular)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed id: expected 400, got %d", rec.Code)
	}
	body = decodeBody(t, rec.Body.Bytes())
	details, _ := body["details"].([]any)
	if body["error"] != "Validation failed" || len(details) == 0 {
		t.Fatalf("expected field-level detail, got %v", body)
	}
	if detail, _ := details[0].(map[string]any); detail["field"] != "id" {
		t.Fatalf("expected detail on id, got %v", details[0])
	}
}

func TestUsersHandler_MalformedIDsNeverReachStore(t *testing.T) {
	f := newUsersFixture(t)
	admin := f.token(t, 3, entity.RoleAdmin)

	ids := []string{"abc", "-1", "0", "1.5", "%20", "99999999999999999999", "0x10"}
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		for _, id := range ids {
			rec := f.do(method, "/api/users/"+id, `{"name":"X"}`, admin)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("%s /api/users/%s: expected 400, got %d", method, id, rec.Code)
			}
		}
	}
	if calls := f.repo.storeCalls(); calls != 0 {
		t.Fatalf("expected no store calls, got %d", calls)
	}
}

func TestUsersHandler_EmptyIDSegment(t *testing.T) {
	f := newUsersFixture(t)
	admin := f.token(t, 3, entity.RoleAdmin)

	// "/api/users/" has no id and does not match the :id routes
	rec := f.do(http.MethodDelete, "/api/users/", "", admin)
	if rec.Code == http.StatusOK {
		t.Fatalf("expected a failure for an empty id, got 200")
	}
	if calls := f.repo.storeCalls(); calls != 0 {
		t.Fatalf("expected no store calls, got %d", calls)
	}
}

func TestUsersHandler_EmptyPayloadRejectedBeforeAuthorization(t *testing.T) {
	f := newUsersFixture(t)
	// a regular caller targeting someone else would be forbidden if
	// authorization ran first
	regular := f.token(t, 1, entity.RoleRegular)

	for _, payload := range []string{"", "{}", `{"unknown":"x"}`, `{"id":5,"created_at":"now"}`} {
		rec := f.do(http.MethodPut, "/api/users/2", payload, regular)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("payload %q: expected 400, got %d", payload, rec.Code)
		}
		body := decodeBody(t, rec.Body.Bytes())
		if body["message"] != "At least one field must be provided for update" {
			t.Fatalf("payload %q: unexpected body %v", payload, body)
		}
	}
	if calls := f.repo.storeCalls(); calls != 0 {
		t.Fatalf("expected no store calls, got %d", calls)
	}
}

func TestUsersHandler_InvalidBody(t *testing.T) {
	f := newUsersFixture(t)
	self := f.token(t, 1, entity.RoleRegular)

	cases := map[string]string{
		"bad email":      `{"email":"not-an-email"}`,
		"short password": `{"password":"123"}`,
		"empty name":     `{"name":"   "}`,
		"unknown role":   `{"role":"owner"}`,
		"wrong type":     `{"name":42}`,
		"not an object":  `["name"]`,
		"malformed json": `{"name":`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			rec := f.do(http.MethodPut, "/api/users/1", payload, self)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d %s", rec.Code, rec.Body)
			}
			body := decodeBody(t, rec.Body.Bytes())
			if details, _ := body["details"].([]any); len(details) == 0 {
				t.Fatalf("expected details, got %v", body)
			}
		})
	}
}

func TestUsersHandler_RegularCallerOnOthersIsForbidden(t *testing.T) {
	f := newUsersFixture(t)

	payloads := []string{`{"name":"X"}`, `{"email":"x@example.com"}`, `{"password":"secret1"}`, `{"role":"regular"}`, `{"name":"X","role":"admin"}`}
	for _, caller := range []int64{1, 2} {
		token := f.token(t, caller, entity.RoleRegular)
		for _, target := range []int64{1, 2, 3} {
			if target == caller {
				continue
			}
			path := fmt.Sprintf("/api/users/%d", target)
			for _, payload := range payloads {
				if rec := f.do(http.MethodPut, path, payload, token); rec.Code != http.StatusForbidden {
					t.Fatalf("caller %d PUT %s %s: expected 403, got %d", caller, path, payload, rec.Code)
				}
			}
			rec := f.do(http.MethodDelete, path, "", token)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("caller %d DELETE %s: expected 403, got %d", caller, path, rec.Code)
			}
			if body := decodeBody(t, rec.Body.Bytes()); body["message"] != "You can only delete your own account" {
				t.Fatalf("unexpected body: %v", body)
			}
		}
	}
	if calls := f.repo.storeCalls(); calls != 0 {
		t.Fatalf("expected no store calls, got %d", calls)
	}
}

func TestUsersHandler_AdminOnOthersSucceeds(t *testing.T) {
	f := newUsersFixture(t)
	admin := f.token(t, 3, entity.RoleAdmin)

	rec := f.do(http.MethodPut, "/api/users/1", `{"name":"Alicia","role":"admin"}`, admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body)
	}
	user := decodeBody(t, rec.Body.Bytes())["user"].(map[string]any)
	if user["name"] != "Alicia" || user["role"] != "admin" {
		t.Fatalf("unexpected user: %v", user)
	}

	rec = f.do(http.MethodDelete, "/api/users/2", "", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d %s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec.Body.Bytes())
	deleted := body["user"].(map[string]any)
	if body["message"] != "User deleted successfully" || deleted["email"] != "bob@example.com" || deleted["id"] != float64(2) {
		t.Fatalf("unexpected delete body: %v", body)
	}
	if len(deleted) != 3 {
		t.Fatalf("deleted user should only carry id, email, name: %v", deleted)
	}
}

func TestUsersHandler_SelfUpdate(t *testing.T) {
	f := newUsersFixture(t)
	self := f.token(t, 1, entity.RoleRegular)

	if rec := f.do(http.MethodPut, "/api/users/1", `{"name":"Al","role":"regular"}`, self); rec.Code != http.StatusForbidden {
		t.Fatalf("role in payload: expected 403, got %d", rec.Code)
	}
	rec := f.do(http.MethodPut, "/api/users/1", `{"name":"Al"}`, self)
	if rec.Code != http.StatusOK {
		t.Fatalf("without role: expected 200, got %d %s", rec.Code, rec.Body)
	}

	if rec := f.do(http.MethodDelete, "/api/users/1", "", self); rec.Code != http.StatusOK {
		t.Fatalf("self delete: expected 200, got %d", rec.Code)
	}
}

func TestUsersHandler_DeleteMissingIsAlwaysNotFound(t *testing.T) {
	f := newUsersFixture(t)
	admin := f.token(t, 3, entity.RoleAdmin)

	for i := 0; i < 3; i++ {
		if rec := f.do(http.MethodDelete, "/api/users/999", "", admin); rec.Code != http.StatusNotFound {
			t.Fatalf("attempt %d: expected 404, got %d", i, rec.Code)
		}
	}

	if rec := f.do(http.MethodDelete, "/api/users/2", "", admin); rec.Code != http.StatusOK {
		t.Fatalf("first delete: expected 200, got %d", rec.Code)
	}
	if rec := f.do(http.MethodDelete, "/api/users/2", "", admin); rec.Code != http.StatusNotFound {
		t.Fatalf("repeated delete: expected 404, got %d", rec.Code)
	}
}

func TestUsersHandler_PasswordNeverInResponses(t *testing.T) {
	f := newUsersFixture(t)
	self := f.token(t, 1, entity.RoleRegular)

	responses := []string{
		f.do(http.MethodGet, "/api/users", "", self).Body.String(),
		f.do(http.MethodGet, "/api/users/1", "", self).Body.String(),
		f.do(http.MethodPut, "/api/users/1", `{"password":"new-secret"}`, self).Body.String(),
		f.do(http.MethodGet, "/api/users/1", "", self).Body.String(),
		f.do(http.MethodDelete, "/api/users/1", "", self).Body.String(),
	}
	for i, body := range responses {
		lower := strings.ToLower(body)
		if strings.Contains(lower, "password") || strings.Contains(body, "new-secret") || strings.Contains(body, "hashed:") {
			t.Fatalf("response %d leaks password material: %s", i, body)
		}
	}

}

func TestUsersHandler_PasswordIsHashedBeforeStore(t *testing.T) {
	f := newUsersFixture(t)
	self := f.token(t, 2, entity.RoleRegular)

	if rec := f.do(http.MethodPut, "/api/users/2", `{"password":"new-secret"}`, self); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := f.repo.users[2].hash; got != "hashed:new-secret" {
		t.Fatalf("expected hashed password in store, got %q", got)
	}
}

func TestUsersHandler_ListAndGet(t *testing.T) {
	f := newUsersFixture(t)
	token := f.token(t, 1, entity.RoleRegular)

	rec := f.do(http.MethodGet, "/api/users", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec.Body.Bytes())
	users, _ := body["users"].([]any)
	if body["message"] != "Successfully retrieved users" || body["count"] != float64(3) || len(users) != 3 {
		t.Fatalf("unexpected list body: %v", body)
	}

	rec = f.do(http.MethodGet, "/api/users/3", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body = decodeBody(t, rec.Body.Bytes())
	user := body["user"].(map[string]any)
	if body["message"] != "Successfully retrieved user" || user["email"] != "carol@example.com" {
		t.Fatalf("unexpected get body: %v", body)
	}

	if rec := f.do(http.MethodGet, "/api/users/42", "", token); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUsersHandler_Unauthenticated(t *testing.T) {
	f := newUsersFixture(t)
	valid := f.token(t, 1, entity.RoleRegular)

	cases := []struct {
		name    string
		token   string
		message string
	}{
		{"missing", "", "Authentication required"},
		{"garbage", "not-a-token", "Invalid or expired token"},
		{"tampered", valid + "x", "Invalid or expired token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
				rec := f.do(method, "/api/users/abc", `{"name":"X"}`, tc.token)
				if rec.Code != http.StatusUnauthorized {
					t.Fatalf("%s: expected 401, got %d", method, rec.Code)
				}
				body := decodeBody(t, rec.Body.Bytes())
				if body["error"] != "Unauthorized" || body["message"] != tc.message {
					t.Fatalf("%s: unexpected body %v", method, body)
				}
			}
		})
	}
	if calls := f.repo.storeCalls(); calls != 0 {
		t.Fatalf("expected no store calls, got %d", calls)
	}
}

func TestUsersHandler_StoreErrorsGoToErrorHandler(t *testing.T) {
	f := newUsersFixture(t)
	admin := f.token(t, 3, entity.RoleAdmin)
	f.repo.fail = errors.New("connection reset by peer")

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/users", ""},
		{http.MethodGet, "/api/users/1", ""},
		{http.MethodPut, "/api/users/1", `{"name":"X"}`},
		{http.MethodDelete, "/api/users/1", ""},
	} {
		rec := f.do(tc.method, tc.path, tc.body, admin)
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("%s %s: expected 500, got %d", tc.method, tc.path, rec.Code)
		}
		if strings.Contains(rec.Body.String(), "connection reset") {
			t.Fatalf("store error leaked: %s", rec.Body)
		}
		if body := decodeBody(t, rec.Body.Bytes()); body["error"] != "Internal Server Error" {
			t.Fatalf("unexpected body: %v", body)
		}
	}
}

func TestUsersHandler_DuplicateEmailIsConflict(t *testing.T) {
	f := newUsersFixture(t)
	self := f.token(t, 1, entity.RoleRegular)

	rec := f.do(http.MethodPut, "/api/users/1", `{"email":"bob@example.com"}`, self)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d %s", rec.Code, rec.Body)
	}
	body := decodeBody(t, rec.Body.Bytes())
	if body["error"] != "Conflict" || body["message"] != "Email already exists" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestUsersHandler_BearerHeaderFallback(t *testing.T) {
	f := newUsersFixture(t)
	token := f.token(t, 1, entity.RoleRegular)

	req := httptest.NewRequest(http.MethodGet, "/api/users/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with bearer header, got %d", rec.Code)
	}
}
