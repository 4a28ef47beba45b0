package httpserver

import (
	"context"
	"errors"
	"net/http"
	"net/mail"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/admin/apiclient"
	custommw "finitefield.org/taskboard/internal/admin/httpserver/middleware"
	appsession "finitefield.org/taskboard/internal/admin/session"
	"finitefield.org/taskboard/internal/admin/templates/auth"
	"finitefield.org/taskboard/internal/platform/requestctx"
)

const (
	minNameLength     = 2
	minPasswordLength = 8
)

// AccountService signs users in and up against the API.
type AccountService interface {
	SignIn(ctx context.Context, email, password string) (apiclient.Session, error)
	SignUp(ctx context.Context, email, password, name string) (apiclient.User, error)
}

type authHandlers struct {
	authenticator custommw.Authenticator
	accounts      AccountService
	idTokenLogin  bool
	basePath      string
	loginPath     string
	signupPath    string
}

func newAuthHandlers(authenticator custommw.Authenticator, accounts AccountService, idTokenLogin bool, basePath, loginPath string) *authHandlers {
	if authenticator == nil {
		panic("auth: authenticator is required")
	}
	if accounts == nil && !idTokenLogin {
		panic("auth: account service is required for password login")
	}
	basePath = custommw.NormalizeBasePath(basePath)
	if strings.TrimSpace(loginPath) == "" {
		loginPath = custommw.JoinBase(basePath, "/login")
	}
	h := &authHandlers{
		authenticator: authenticator,
		accounts:      accounts,
		idTokenLogin:  idTokenLogin,
		basePath:      basePath,
		loginPath:     loginPath,
	}
	if !idTokenLogin {
		h.signupPath = custommw.JoinBase(basePath, "/signup")
	}
	return h
}

func (h *authHandlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	if h.isAuthenticated(r) && !forceLogin(r) {
		target := h.redirectTarget(r.URL.Query().Get("next"))
		http.Redirect(w, r, target, http.StatusFound)
		return
	}

	data := h.buildLoginPageData(r, nil)
	h.renderLoginPage(w, r, data, http.StatusOK)
}

func (h *authHandlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		state := &loginFormState{Error: "フォームの送信に失敗しました。もう一度お試しください。"}
		h.renderLoginPage(w, r, h.buildLoginPageData(r, state), http.StatusBadRequest)
		return
	}

	state := &loginFormState{
		Email:    strings.TrimSpace(r.PostFormValue("email")),
		Remember: parseCheckbox(r.PostFormValue("remember")),
		Next:     r.PostFormValue("next"),
	}

	var (
		profile  *appsession.User
		apiToken string
		idToken  string
		status   int
	)
	if h.idTokenLogin {
		profile, idToken, status = h.verifyIDToken(r, state)
	} else {
		profile, apiToken, status = h.signIn(r, state)
	}
	if profile == nil {
		h.renderLoginPage(w, r, h.buildLoginPageData(r, state), status)
		return
	}

	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.SetUser(profile)
		sess.SetAPIToken(apiToken)
		sess.SetRememberMe(state.Remember)
	}
	if idToken != "" {
		h.setIDTokenCookie(w, r, idToken, state.Remember)
	}
	requestctx.Logger(r.Context()).Info("admin login", zap.String("user_id", profile.ID))

	target := h.redirectTarget(state.Next)
	if custommw.IsHTMXRequest(r.Context()) {
		custommw.HXRedirect(w, target)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// signIn exchanges email and password for an API session.
func (h *authHandlers) signIn(r *http.Request, state *loginFormState) (*appsession.User, string, int) {
	password := r.PostFormValue("password")
	if state.Email == "" || password == "" {
		state.Error = "メールアドレスとパスワードを入力してください。"
		return nil, "", http.StatusBadRequest
	}

	result, err := h.accounts.SignIn(r.Context(), state.Email, password)
	if err != nil {
		requestctx.Logger(r.Context()).Warn("admin login failed", zap.Error(err))
		if errors.Is(err, apiclient.ErrUnauthorized) {
			state.Error = "メールアドレスまたはパスワードが正しくありません。"
			return nil, "", http.StatusUnauthorized
		}
		state.Error = "ログインに失敗しました。時間をおいて再度お試しください。"
		return nil, "", http.StatusBadGateway
	}
	return &appsession.User{ID: result.User.ID, Email: result.User.Email, Name: result.User.Name}, result.Token, 0
}

// verifyIDToken authenticates a client-obtained ID token.
func (h *authHandlers) verifyIDToken(r *http.Request, state *loginFormState) (*appsession.User, string, int) {
	token := strings.TrimSpace(r.PostFormValue("id_token"))
	if token == "" {
		state.Error = "IDトークンを入力してください。"
		return nil, "", http.StatusBadRequest
	}
	user, err := h.authenticator.Authenticate(r, token)
	if err != nil || user == nil {
		requestctx.Logger(r.Context()).Warn("admin login failed", zap.Error(err))
		state.Error = h.errorMessageFor(err)
		return nil, "", http.StatusUnauthorized
	}
	if user.Email == "" {
		user.Email = state.Email
	}
	return &appsession.User{ID: user.ID, Email: user.Email, Name: user.Name}, token, 0
}

func (h *authHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.Destroy()
	}
	h.clearIDTokenCookie(w)

	redirect := h.loginURLWithParams(map[string]string{"status": "logged_out"})
	if custommw.IsHTMXRequest(r.Context()) {
		custommw.HXRedirect(w, redirect)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (h *authHandlers) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.renderSignupPage(w, r, auth.SignupPageData{}, http.StatusOK)
}

func (h *authHandlers) SignupSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderSignupPage(w, r, auth.SignupPageData{Error: "フォームの送信に失敗しました。もう一度お試しください。"}, http.StatusBadRequest)
		return
	}

	data := auth.SignupPageData{
		Name:  strings.TrimSpace(r.PostFormValue("name")),
		Email: strings.TrimSpace(r.PostFormValue("email")),
	}
	password := r.PostFormValue("password")
	data.FieldError = validateSignup(data.Name, data.Email, password, r.PostFormValue("password_confirmation"))
	if len(data.FieldError) > 0 {
		data.Error = "入力内容を確認してください。"
		h.renderSignupPage(w, r, data, http.StatusBadRequest)
		return
	}

	if _, err := h.accounts.SignUp(r.Context(), data.Email, password, data.Name); err != nil {
		requestctx.Logger(r.Context()).Warn("admin signup failed", zap.Error(err))
		var apiErr *apiclient.Error
		switch {
		case errors.As(err, &apiErr) && apiErr.Code == "user_exists":
			data.Error = "このメールアドレスは既に登録されています。"
			h.renderSignupPage(w, r, data, http.StatusConflict)
		case errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest:
			data.Error = "登録内容が正しくありません: " + apiErr.Message
			h.renderSignupPage(w, r, data, http.StatusBadRequest)
		default:
			data.Error = "登録に失敗しました。時間をおいて再度お試しください。"
			h.renderSignupPage(w, r, data, http.StatusBadGateway)
		}
		return
	}

	http.Redirect(w, r, h.loginURLWithParams(map[string]string{
		"status": "registered",
		"email":  data.Email,
	}), http.StatusSeeOther)
}

func validateSignup(name, email, password, confirmation string) map[string]string {
	errs := map[string]string{}
	if utf8.RuneCountInString(name) < minNameLength {
		errs["name"] = "名前は2文字以上で入力してください。"
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		errs["email"] = "メールアドレスの形式が正しくありません。"
	}
	if utf8.RuneCountInString(password) < minPasswordLength {
		errs["password"] = "パスワードは8文字以上で入力してください。"
	}
	if password != confirmation {
		errs["password_confirmation"] = "パスワードが一致しません。"
	}
	return errs
}

type loginFormState struct {
	Email    string
	Remember bool
	Next     string
	Error    string
}

func (h *authHandlers) buildLoginPageData(r *http.Request, state *loginFormState) auth.LoginPageData {
	q := r.URL.Query()
	data := auth.LoginPageData{
		Message:      h.messageForQuery(q),
		LoginPath:    h.loginPath,
		SignupPath:   h.signupPath,
		BasePath:     h.basePath,
		CSRFToken:    custommw.CSRFTokenFromContext(r.Context()),
		IDTokenLogin: h.idTokenLogin,
	}
	if state != nil {
		data.Email = state.Email
		data.Error = state.Error
		data.Remember = state.Remember
		data.Next = h.normalizeNext(state.Next)
		return data
	}
	data.Email = strings.TrimSpace(q.Get("email"))
	data.Next = h.normalizeNext(q.Get("next"))
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		data.Remember = sess.RememberMe()
	}
	return data
}

func (h *authHandlers) renderLoginPage(w http.ResponseWriter, r *http.Request, data auth.LoginPageData, status int) {
	templ.Handler(auth.LoginPage(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *authHandlers) renderSignupPage(w http.ResponseWriter, r *http.Request, data auth.SignupPageData, status int) {
	data.SignupPath = h.signupPath
	data.LoginPath = h.loginPath
	data.CSRFToken = custommw.CSRFTokenFromContext(r.Context())
	templ.Handler(auth.SignupPage(data), templ.WithStatus(status)).ServeHTTP(w, r)
}

func (h *authHandlers) isAuthenticated(r *http.Request) bool {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		return false
	}
	user := sess.User()
	return user != nil && strings.TrimSpace(user.ID) != ""
}

func (h *authHandlers) errorMessageFor(err error) string {
	var authErr *custommw.AuthError
	if errors.As(err, &authErr) {
		switch authErr.Reason {
		case custommw.ReasonTokenExpired:
			return "IDトークンの有効期限が切れています。再度取得してください。"
		case custommw.ReasonMissingToken:
			return "認証情報が不足しています。もう一度確認してください。"
		}
	}
	return "認証に失敗しました。入力内容をご確認ください。"
}

func (h *authHandlers) messageForQuery(q url.Values) string {
	switch q.Get("status") {
	case "logged_out":
		return "ログアウトしました。"
	case "registered":
		return "アカウントを作成しました。ログインしてください。"
	}
	switch q.Get("reason") {
	case custommw.ReasonTokenExpired, "expired":
		return "セッションの有効期限が切れました。再度ログインしてください。"
	case custommw.ReasonMissingToken:
		return "ログインが必要です。"
	case custommw.ReasonTokenInvalid:
		return "ログイン情報が無効です。再度お試しください。"
	default:
		return ""
	}
}

func (h *authHandlers) redirectTarget(raw string) string {
	if next := h.normalizeNext(raw); next != "" {
		return next
	}
	return h.basePath
}

func (h *authHandlers) setIDTokenCookie(w http.ResponseWriter, r *http.Request, token string, remember bool) {
	cookie := &http.Cookie{
		Name:     custommw.IDTokenCookie,
		Value:    token,
		Path:     h.basePath,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		if sess, ok := custommw.SessionFromContext(r.Context()); ok {
			if expiry := sess.ExpiresAt(); !expiry.IsZero() {
				cookie.Expires = expiry.UTC()
				if remaining := time.Until(expiry); remaining > 0 {
					cookie.MaxAge = int(remaining.Round(time.Second).Seconds())
				}
			}
		}
	}
	http.SetCookie(w, cookie)
}

func (h *authHandlers) clearIDTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     custommw.IDTokenCookie,
		Value:    "",
		Path:     h.basePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *authHandlers) loginURLWithParams(params map[string]string) string {
	parsed, err := url.Parse(h.loginPath)
	if err != nil {
		return h.loginPath
	}
	q := parsed.Query()
	for key, val := range params {
		if strings.TrimSpace(val) == "" {
			continue
		}
		q.Set(key, val)
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}

func parseCheckbox(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "on", "yes":
		return true
	default:
		return false
	}
}

func forceLogin(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("force"))) {
	case "1", "true", "yes", "force":
		return true
	default:
		return false
	}
}

func (h *authHandlers) normalizeNext(raw string) string {
	sanitized := sanitizeNextTarget(h.basePath, raw)
	if sanitized == "" {
		return ""
	}
	if target, err := url.Parse(sanitized); err == nil && samePath(target.Path, h.loginPath) {
		return ""
	}
	return sanitized
}

func samePath(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return custommw.NormalizeBasePath(a) == custommw.NormalizeBasePath(b)
}

// sanitizeNextTarget accepts only same-origin paths under basePath.
func sanitizeNextTarget(basePath, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return ""
	}

	pathValue := parsed.Path
	if pathValue == "" {
		pathValue = "/"
	}
	unescaped, err := url.PathUnescape(pathValue)
	if err != nil || strings.Contains(unescaped, "\\") {
		return ""
	}
	cleaned := path.Clean(unescaped)
	if !strings.HasPrefix(cleaned, "/") {
		cleaned = "/" + cleaned
	}
	if strings.HasPrefix(cleaned, "//") {
		return ""
	}

	base := custommw.NormalizeBasePath(basePath)
	if base != "/" && cleaned != base && !strings.HasPrefix(cleaned, base+"/") {
		return ""
	}

	target := cleaned
	if parsed.RawQuery != "" {
		target += "?" + parsed.RawQuery
	}
	return target
}
