package tracker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/ternarybob/seedkeeper/internal/common"
	"github.com/ternarybob/seedkeeper/internal/interfaces"
)

func testClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Account.BaseURL = serverURL
	cfg.Account.UserID = "123456"
	return NewClient(cfg)
}

func TestClient_FetchStats(t *testing.T) {
	var gotCookie, gotID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("mam_id"); err == nil {
			gotCookie = c.Value
		}
		gotID = r.URL.Query().Get("id")

		// Rotation plus an unrelated cookie the scan must skip over.
		w.Header().Add("Set-Cookie", "tracking=xyz; Path=/")
		w.Header().Add("Set-Cookie", "mam_id=rotated-token; Path=/; HttpOnly")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"username": "seeder42", "seedbonus": "12,500", "ratio": 3.1}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	stats, rotated, err := c.FetchStats(context.Background(), "old-token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotCookie != "old-token" {
		t.Errorf("request cookie: got %q, want old-token", gotCookie)
	}
	if gotID != "123456" {
		t.Errorf("id param: got %q, want 123456", gotID)
	}
	if stats == nil || stats.Username != "seeder42" {
		t.Fatalf("stats: got %+v", stats)
	}
	if int64(stats.SeedBonus) != 12500 {
		t.Errorf("seedbonus: got %d, want 12500", int64(stats.SeedBonus))
	}
	if rotated != "rotated-token" {
		t.Errorf("rotated: got %q, want rotated-token", rotated)
	}
}

func TestClient_FetchStats_LoggedOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The clear sentinel still comes back as a rotation; callers must
		// refuse to persist it.
		w.Header().Add("Set-Cookie", "mam_id=deleted; Path=/")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"error": "Invalid session"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	stats, rotated, err := c.FetchStats(context.Background(), "stale")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats != nil {
		t.Errorf("expected nil stats for logged-out payload, got %+v", stats)
	}
	if rotated != "deleted" {
		t.Errorf("rotated should surface the raw value: got %q", rotated)
	}
}

func TestClient_FetchStats_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	stats, _, err := c.FetchStats(context.Background(), "tok")
	if err == nil {
		t.Error("expected error for 500 response")
	}
	if stats != nil {
		t.Errorf("expected nil stats, got %+v", stats)
	}
}

func TestClient_Do_StatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		status   int
		expectOK bool
	}{
		{"get 200", http.MethodGet, http.StatusOK, true},
		{"get 201 is not success", http.MethodGet, http.StatusCreated, false},
		{"get 500", http.MethodGet, http.StatusInternalServerError, false},
		{"post 200", http.MethodPost, http.StatusOK, true},
		{"post 201", http.MethodPost, http.StatusCreated, true},
		{"post 204", http.MethodPost, http.StatusNoContent, true},
		{"post 403", http.MethodPost, http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c := testClient(t, srv.URL)
			ok, _ := c.Do(context.Background(), interfaces.ActionRequest{
				Path:       "/json/bonusBuy.php/?spendtype=VIP&amount=max",
				Method:     tt.method,
				CookieName: "mam_id",
				Token:      "tok",
			})
			if ok != tt.expectOK {
				t.Errorf("ok = %v, want %v", ok, tt.expectOK)
			}
		})
	}
}

func TestClient_Do_FormAndHeaders(t *testing.T) {
	var gotForm url.Values
	var gotOrigin, gotReferer, gotCookie string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		gotOrigin = r.Header.Get("Origin")
		gotReferer = r.Header.Get("Referer")
		if c, err := r.Cookie("mbsc"); err == nil {
			gotCookie = c.Value
		}
		w.Header().Add("Set-Cookie", "mbsc=fresh-mbsc; Path=/")
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	form := url.Values{}
	form.Set("Donation", "2000")
	form.Set("submit", "Donate Points")

	ok, rotated := c.Do(context.Background(), interfaces.ActionRequest{
		Path:           "/millionaires/donate.php",
		Method:         http.MethodPost,
		CookieName:     "mbsc",
		Token:          "login-token",
		Form:           form,
		BrowserHeaders: true,
		Referer:        srv.URL + "/millionaires/donate.php",
	})
	if !ok {
		t.Fatal("expected donation POST to succeed")
	}
	if gotForm.Get("Donation") != "2000" || gotForm.Get("submit") != "Donate Points" {
		t.Errorf("form: got %v", gotForm)
	}
	if gotOrigin != srv.URL {
		t.Errorf("origin: got %q, want %q", gotOrigin, srv.URL)
	}
	if gotReferer != srv.URL+"/millionaires/donate.php" {
		t.Errorf("referer: got %q", gotReferer)
	}
	if gotCookie != "login-token" {
		t.Errorf("cookie: got %q, want login-token", gotCookie)
	}
	if rotated != "fresh-mbsc" {
		t.Errorf("rotated: got %q, want fresh-mbsc", rotated)
	}
}

func TestClient_Do_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed server, connection refused

	c := testClient(t, srv.URL)
	ok, rotated := c.Do(context.Background(), interfaces.ActionRequest{
		Path:       "/json/bonusBuy.php/?spendtype=upload&amount=50",
		Method:     http.MethodGet,
		CookieName: "mam_id",
		Token:      "tok",
	})
	if ok {
		t.Error("expected failure for unreachable server")
	}
	if rotated != "" {
		t.Errorf("transport failure must not rotate: got %q", rotated)
	}
}

const loginPage = `<html><body>
<form action="/some/other/form" method="post"><input name="q" value=""></form>
<form action="/takelogin.php" method="post">
  <input type="hidden" name="csrf" value="token-abc">
  <input type="text" name="email" value="">
  <input type="password" name="password" value="">
  <input type="submit" name="submit" value="Log in!">
</form>
</body></html>`

func TestClient_Login(t *testing.T) {
	var gotSubmit url.Values
	mux := http.NewServeMux()
	mux.HandleFunc("/login.php", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(loginPage))
	})
	mux.HandleFunc("/takelogin.php", func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotSubmit = r.PostForm
		w.Header().Add("Set-Cookie", "mam_id=new-session; Path=/; HttpOnly")
		w.Header().Set("Location", "/index.php")
		w.WriteHeader(http.StatusFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := testClient(t, srv.URL)

	token, kind := c.Login(context.Background(), "user@example.com", "secret")
	if kind != interfaces.KindNone {
		t.Fatalf("kind: got %s", kind)
	}
	if token != "new-session" {
		t.Errorf("token: got %q, want new-session", token)
	}
	if gotSubmit.Get("email") != "user@example.com" || gotSubmit.Get("password") != "secret" {
		t.Errorf("submit form: got %v", gotSubmit)
	}
	if gotSubmit.Get("csrf") != "token-abc" {
		t.Errorf("hidden field not carried: got %v", gotSubmit)
	}
}

func TestClient_Login_Failures(t *testing.T) {
	t.Run("empty username needs no network", func(t *testing.T) {
		c := testClient(t, "http://127.0.0.1:0")
		if _, kind := c.Login(context.Background(), "", "secret"); kind != interfaces.KindInvalidUsername {
			t.Errorf("kind: got %s, want %s", kind, interfaces.KindInvalidUsername)
		}
	})

	t.Run("sentinel cookie means invalid auth", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/login.php", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(loginPage))
		})
		mux.HandleFunc("/takelogin.php", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Set-Cookie", "mam_id=deleted; Path=/")
			w.WriteHeader(http.StatusOK)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		c := testClient(t, srv.URL)
		if _, kind := c.Login(context.Background(), "user@example.com", "wrong"); kind != interfaces.KindInvalidAuth {
			t.Errorf("kind: got %s, want %s", kind, interfaces.KindInvalidAuth)
		}
	})

	t.Run("page without login form cannot connect", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><body>maintenance</body></html>`))
		}))
		defer srv.Close()

		c := testClient(t, srv.URL)
		if _, kind := c.Login(context.Background(), "user@example.com", "secret"); kind != interfaces.KindCannotConnect {
			t.Errorf("kind: got %s, want %s", kind, interfaces.KindCannotConnect)
		}
	})
}

func TestClient_ValidateCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"username": "seeder42"}`))
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)

	if kind := c.ValidateCredentials(context.Background(), "tok"); kind != interfaces.KindNone {
		t.Errorf("valid token: got %s", kind)
	}
	if kind := c.ValidateCredentials(context.Background(), ""); kind != interfaces.KindMissingCredentials {
		t.Errorf("empty token: got %s", kind)
	}
	if kind := c.ValidateCredentials(context.Background(), "deleted"); kind != interfaces.KindMissingCredentials {
		t.Errorf("sentinel token: got %s", kind)
	}

	noID := testClient(t, srv.URL)
	noID.userID = ""
	if kind := noID.ValidateCredentials(context.Background(), "tok"); kind != interfaces.KindInvalidUserID {
		t.Errorf("missing user id: got %s", kind)
	}
}
