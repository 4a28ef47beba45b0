package httpserver_test

import (
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/taskboard/internal/admin/httpserver/middleware"
	"finitefield.org/taskboard/internal/admin/testutil"
)

func TestProtectedRouteRedirectsToLogin(t *testing.T) {
	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts, "")

	resp := client.Get("/admin/todos?q=milk", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/admin/login", loc.Path)
	require.Equal(t, "/admin/todos?q=milk", loc.Query().Get("next"))
}

func TestProtectedFragmentReturnsUnauthorizedForHTMX(t *testing.T) {
	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts, "")

	resp := client.Get("/admin/todos/table", "/admin/todos")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "/admin/login", resp.Header.Get("HX-Redirect"))
}

func TestLoginPageRendersForm(t *testing.T) {
	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts, "")

	resp := client.Get("/admin/login?next=/admin/todos", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "no-store", resp.Header.Get("Cache-Control"))

	doc := testutil.ParseHTML(t, resp.Body)
	form := doc.Find("form#login-form")
	require.Equal(t, 1, form.Length())
	require.Equal(t, "/admin/login", form.AttrOr("action", ""))
	require.Equal(t, 1, form.Find(`input[name="email"]`).Length())
	require.Equal(t, 1, form.Find(`input[name="password"]`).Length())
	require.Zero(t, form.Find(`input[name="id_token"]`).Length())
	require.Equal(t, "/admin/todos", form.Find(`input[name="next"]`).AttrOr("value", ""))
	require.Equal(t, client.CSRFToken(), form.Find(`input[name="csrf_token"]`).AttrOr("value", ""))
	require.Equal(t, 1, doc.Find(`a[href="/admin/signup"]`).Length())
	require.Zero(t, doc.Find(".topbar").Length())
}

func TestLoginRejectsMissingCSRFToken(t *testing.T) {
	ts := testutil.NewServer(t)

	resp, err := http.PostForm(ts.URL+"/admin/login", url.Values{
		"email":    {"staff@example.com"},
		"password": {"password123"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLoginLogoutFlow(t *testing.T) {
	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts, "")

	resp := client.Post("/admin/login", url.Values{
		"email":    {"staff@example.com"},
		"password": {"password123"},
		"next":     {"/admin/todos?status=active"},
	}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/todos?status=active", resp.Header.Get("Location"))

	resp = client.Get("/admin/todos", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, resp.Body)
	require.Contains(t, doc.Find(".topbar").Text(), "Staff")

	resp = client.Get("/admin/login", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))

	resp = client.Post("/admin/logout", nil, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin/login?status=logged_out", resp.Header.Get("Location"))

	resp = client.Get("/admin/todos", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = client.Get("/admin/login?status=logged_out", "")
	doc = testutil.ParseHTML(t, resp.Body)
	require.Equal(t, "ログアウトしました。", doc.Find(".alert-info").Text())
}

func TestLoginWithWrongPassword(t *testing.T) {
	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts, "")

	resp := client.Post("/admin/login", url.Values{
		"email":    {"staff@example.com"},
		"password": {"wrong-password"},
	}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	doc := testutil.ParseHTML(t, resp.Body)
	require.Equal(t, "メールアドレスまたはパスワードが正しくありません。", doc.Find(".alert-error").Text())
	require.Equal(t, "staff@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
}

func TestLoginIgnoresExternalNext(t *testing.T) {
	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts, "")

	resp := client.Post("/admin/login", url.Values{
		"email":    {"staff@example.com"},
		"password": {"password123"},
		"next":     {"https://evil.example.com/admin"},
	}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))
}

func TestHTMXLoginUsesHXRedirect(t *testing.T) {
	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts, "")

	resp := client.Post("/admin/login", url.Values{
		"email":    {"staff@example.com"},
		"password": {"password123"},
	}, "/admin/login")
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("HX-Redirect"))
}

func TestSignupValidation(t *testing.T) {
	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts, "")

	resp := client.Post("/admin/signup", url.Values{
		"name":                  {"A"},
		"email":                 {"not-an-email"},
		"password":              {"short"},
		"password_confirmation": {"other"},
	}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	doc := testutil.ParseHTML(t, resp.Body)
	require.Equal(t, 4, doc.Find(".field-error").Length())
	require.Equal(t, "A", doc.Find(`input[name="name"]`).AttrOr("value", ""))
	require.Equal(t, "not-an-email", doc.Find(`input[name="email"]`).AttrOr("value", ""))
}

func TestSignupCreatesAccount(t *testing.T) {
	accounts := testutil.NewAccounts("staff@example.com", "password123", "Staff")
	ts := testutil.NewServer(t, testutil.WithAccounts(accounts))
	client := testutil.NewClient(t, ts, "")

	resp := client.Post("/admin/signup", url.Values{
		"name":                  {"新しい人"},
		"email":                 {"new@example.com"},
		"password":              {"longenough"},
		"password_confirmation": {"longenough"},
	}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, accounts.Registered("new@example.com"))

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/admin/login", loc.Path)
	require.Equal(t, "registered", loc.Query().Get("status"))

	resp = client.Get(loc.RequestURI(), "")
	doc := testutil.ParseHTML(t, resp.Body)
	require.Equal(t, "アカウントを作成しました。ログインしてください。", doc.Find(".alert-info").Text())
	require.Equal(t, "new@example.com", doc.Find(`input[name="email"]`).AttrOr("value", ""))
}

func TestSignupDuplicateEmail(t *testing.T) {
	ts := testutil.NewServer(t)
	client := testutil.NewClient(t, ts, "")

	resp := client.Post("/admin/signup", url.Values{
		"name":                  {"Staff"},
		"email":                 {"staff@example.com"},
		"password":              {"password123"},
		"password_confirmation": {"password123"},
	}, "")
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	doc := testutil.ParseHTML(t, resp.Body)
	require.Equal(t, "このメールアドレスは既に登録されています。", doc.Find(".alert-error").Text())
}

func TestIDTokenLogin(t *testing.T) {
	ts := testutil.NewServer(t, testutil.WithIDTokenLogin())
	client := testutil.NewClient(t, ts, "")

	resp := client.Get("/admin/login", "")
	doc := testutil.ParseHTML(t, resp.Body)
	require.Equal(t, 1, doc.Find(`input[name="id_token"]`).Length())
	require.Zero(t, doc.Find(`input[name="password"]`).Length())
	require.Zero(t, doc.Find(`a[href="/admin/signup"]`).Length())

	resp = client.Get("/admin/signup", "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = client.Post("/admin/login", url.Values{"id_token": {"bogus"}}, "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	doc = testutil.ParseHTML(t, resp.Body)
	require.Equal(t, "認証に失敗しました。入力内容をご確認ください。", doc.Find(".alert-error").Text())

	resp = client.Post("/admin/login", url.Values{"id_token": {testutil.TestToken}}, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.True(t, client.HasCookie(middleware.IDTokenCookie))

	resp = client.Get("/admin/todos", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = client.Post("/admin/logout", nil, "")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.False(t, client.HasCookie(middleware.IDTokenCookie))
}

func TestCustomBasePath(t *testing.T) {
	ts := testutil.NewServer(t, testutil.WithBasePath("/console"))
	client := testutil.NewClient(t, ts, testutil.TestToken)

	resp := client.Get("/console/todos", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	doc := testutil.ParseHTML(t, resp.Body)
	require.Equal(t, "/console/todos/filters/field", doc.Find(`#filter-q`).AttrOr("hx-post", ""))
	require.True(t, strings.HasPrefix(doc.Find(`a[data-rel="next"]`).AttrOr("href", ""), "/console/todos?"))
}

func TestStaticAssetsAreServed(t *testing.T) {
	ts := testutil.NewServer(t)

	resp, err := http.Get(ts.URL + "/public/static/app.css")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
