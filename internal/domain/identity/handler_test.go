package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/clinic/reserve/internal/platform/auth"
	"github.com/clinic/reserve/internal/platform/store"
	"github.com/clinic/reserve/pkg/model"
)

func newHandlerWithUsers(t *testing.T, users ...model.User) (*Handler, *store.Store) {
	t.Helper()
	svc, st, _ := newTestService(t)
	for _, u := range users {
		seedUser(t, st, u)
	}
	return NewHandler(svc), st
}

func jsonRequest(t *testing.T, body string, asUser *model.User) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if asUser != nil {
		auth.SetCurrentUser(c, asUser)
	}
	return c, rec
}

func status(t *testing.T, err error, rec *httptest.ResponseRecorder) int {
	t.Helper()
	if err != nil {
		if he, ok := err.(*echo.HTTPError); ok {
			return he.Code
		}
		t.Fatalf("unexpected error: %v", err)
	}
	return rec.Code
}

func TestLoginHandler(t *testing.T) {
	h, _ := newHandlerWithUsers(t, model.User{UserID: "alice", Password: "secret", Name: "Alice", Role: model.RoleGeneral})

	c, rec := jsonRequest(t, `{"userId":"alice","password":"secret"}`, nil)
	if got := status(t, h.Login(c), rec); got != http.StatusOK {
		t.Fatalf("status = %d, want 200", got)
	}
	var result LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Token != "alice" || result.User.Name != "Alice" {
		t.Errorf("unexpected login result: %+v", result)
	}
	if strings.Contains(rec.Body.String(), "secret") {
		t.Error("response must not leak the password")
	}

	c, rec = jsonRequest(t, `{"userId":"alice","password":"wrong"}`, nil)
	if got := status(t, h.Login(c), rec); got != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", got)
	}
}

func TestMeHandler(t *testing.T) {
	caller := model.User{UserID: "alice", Name: "Alice", Role: model.RoleGeneral}
	h, _ := newHandlerWithUsers(t)

	c, rec := jsonRequest(t, "", &caller)
	if got := status(t, h.Me(c), rec); got != http.StatusOK {
		t.Fatalf("status = %d, want 200", got)
	}
	var u model.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", u.UserID)
	}

	c, rec = jsonRequest(t, "", nil)
	if got := status(t, h.Me(c), rec); got != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", got)
	}
}

func TestSetPasswordHandler(t *testing.T) {
	caller := model.User{UserID: "alice", Name: "Alice", Role: model.RoleGeneral}
	h, st := newHandlerWithUsers(t, model.User{UserID: "alice", Password: "old", Name: "Alice", MustChangePassword: true})

	c, rec := jsonRequest(t, `{"newPassword":"fresh"}`, &caller)
	if got := status(t, h.SetPassword(c), rec); got != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", got)
	}

	err := st.View(context.Background(), func(snap *store.Snapshot) error {
		u := snap.Users[snap.FindUser("alice")]
		if u.Password != "fresh" || u.MustChangePassword {
			t.Errorf("password change not persisted: %+v", u)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("view: %v", err)
	}

	c, rec = jsonRequest(t, `{"newPassword":"x"}`, nil)
	if got := status(t, h.SetPassword(c), rec); got != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", got)
	}
}

func TestCreateUserHandler(t *testing.T) {
	admin := model.User{UserID: "admin", Name: "Admin", Role: model.RoleAdmin}
	h, _ := newHandlerWithUsers(t)

	c, rec := jsonRequest(t, `{"userId":"bob","name":"Bob","email":"bob@example.com"}`, &admin)
	if got := status(t, h.CreateUser(c), rec); got != http.StatusCreated {
		t.Fatalf("status = %d, want 201", got)
	}
	var body struct {
		User         model.User `json:"user"`
		TempPassword string     `json:"tempPassword"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.UserID != "bob" || body.TempPassword == "" {
		t.Errorf("unexpected response: %+v", body)
	}

	c, rec = jsonRequest(t, `{"userId":"bob","name":"Bob Again"}`, &admin)
	if got := status(t, h.CreateUser(c), rec); got != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", got)
	}

	c, rec = jsonRequest(t, `{"name":"No ID"}`, &admin)
	if got := status(t, h.CreateUser(c), rec); got != http.StatusBadRequest {
		t.Errorf("missing userId status = %d, want 400", got)
	}
}

func TestUpdateAndDeleteUserHandler(t *testing.T) {
	admin := model.User{UserID: "admin", Name: "Admin", Role: model.RoleAdmin}
	h, _ := newHandlerWithUsers(t, model.User{UserID: "alice", Name: "Alice", Role: model.RoleGeneral})

	c, rec := jsonRequest(t, `{"role":"viewer"}`, &admin)
	c.SetParamNames("id")
	c.SetParamValues("alice")
	if got := status(t, h.UpdateUser(c), rec); got != http.StatusOK {
		t.Fatalf("update status = %d, want 200", got)
	}
	var u model.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Role != model.RoleViewer {
		t.Errorf("role = %q, want viewer", u.Role)
	}

	c, rec = jsonRequest(t, "", &admin)
	c.SetParamNames("id")
	c.SetParamValues("alice")
	if got := status(t, h.DeleteUser(c), rec); got != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", got)
	}

	c, rec = jsonRequest(t, "", &admin)
	c.SetParamNames("id")
	c.SetParamValues("alice")
	if got := status(t, h.DeleteUser(c), rec); got != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", got)
	}
}
