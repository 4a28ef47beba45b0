package auth

import (
	"context"
	"io"

	"github.com/a-h/templ"

	"finitefield.org/taskboard/internal/admin/templates/helpers"
	"finitefield.org/taskboard/internal/admin/templates/layout"
)

// LoginPageData encapsulates rendering state for the login screen.
type LoginPageData struct {
	Email      string
	Message    string
	Error      string
	Remember   bool
	Next       string
	LoginPath  string
	SignupPath string
	BasePath   string
	CSRFToken  string
	// IDTokenLogin shows the ID token field used by the Firebase authenticator.
	IDTokenLogin bool
}

// SignupPageData encapsulates rendering state for the signup screen.
type SignupPageData struct {
	Name       string
	Email      string
	Error      string
	FieldError map[string]string
	SignupPath string
	LoginPath  string
	CSRFToken  string
}

// LoginPage renders the login form.
func LoginPage(data LoginPageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw(`<section class="card auth-card"><h1>ログイン</h1>`)
		writeAlert(w, "alert-info", data.Message)
		writeAlert(w, "alert-error", data.Error)

		w.Raw(`<form method="post" id="login-form"`)
		w.Attr("action", data.LoginPath)
		w.Raw(">")
		writeHidden(w, "csrf_token", data.CSRFToken)
		if data.Next != "" {
			writeHidden(w, "next", data.Next)
		}
		if data.IDTokenLogin {
			writeInput(w, "id_token", "text", "IDトークン", "", "off")
		} else {
			writeInput(w, "email", "email", "メールアドレス", data.Email, "username")
			writeInput(w, "password", "password", "パスワード", "", "current-password")
		}
		w.Raw(`<label><input type="checkbox" name="remember" value="true"`)
		w.Flag("checked", data.Remember)
		w.Raw(`> ログイン状態を保持する</label>`)
		w.Raw(`<button type="submit" class="btn btn-primary">ログイン</button></form>`)
		if data.SignupPath != "" {
			w.Raw(`<p>アカウントをお持ちでない方は <a`)
			w.Attr("href", data.SignupPath)
			w.Raw(`>新規登録</a></p>`)
		}
		w.Raw("</section>")
		return w.Err()
	})
	return layout.Base(layout.Page{Title: "ログイン", BasePath: data.BasePath, CSRFToken: data.CSRFToken}, body)
}

// SignupPage renders the registration form.
func SignupPage(data SignupPageData) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, out io.Writer) error {
		w := helpers.NewWriter(ctx, out)
		w.Raw(`<section class="card auth-card"><h1>新規登録</h1>`)
		writeAlert(w, "alert-error", data.Error)

		w.Raw(`<form method="post" id="signup-form"`)
		w.Attr("action", data.SignupPath)
		w.Raw(">")
		writeHidden(w, "csrf_token", data.CSRFToken)
		writeInput(w, "name", "text", "名前", data.Name, "name")
		writeFieldError(w, data.FieldError["name"])
		writeInput(w, "email", "email", "メールアドレス", data.Email, "email")
		writeFieldError(w, data.FieldError["email"])
		writeInput(w, "password", "password", "パスワード", "", "new-password")
		writeFieldError(w, data.FieldError["password"])
		writeInput(w, "password_confirmation", "password", "パスワード（確認）", "", "new-password")
		writeFieldError(w, data.FieldError["password_confirmation"])
		w.Raw(`<button type="submit" class="btn btn-primary">登録する</button></form>`)
		w.Raw(`<p>既にアカウントをお持ちの方は <a`)
		w.Attr("href", data.LoginPath)
		w.Raw(`>ログイン</a></p></section>`)
		return w.Err()
	})
	return layout.Base(layout.Page{Title: "新規登録", CSRFToken: data.CSRFToken}, body)
}

func writeAlert(w *helpers.Writer, class, text string) {
	if text == "" {
		return
	}
	w.Raw(`<div role="alert"`)
	w.Attr("class", "alert "+class)
	w.Raw(">")
	w.Text(text)
	w.Raw("</div>")
}

func writeHidden(w *helpers.Writer, name, value string) {
	w.Raw(`<input type="hidden"`)
	w.Attr("name", name)
	w.Attr("value", value)
	w.Raw(">")
}

func writeInput(w *helpers.Writer, name, kind, label, value, autocomplete string) {
	w.Raw("<label")
	w.Attr("for", name)
	w.Raw(">")
	w.Text(label)
	w.Raw("</label><input")
	w.Attr("id", name)
	w.Attr("name", name)
	w.Attr("type", kind)
	w.AttrIf("value", value)
	w.AttrIf("autocomplete", autocomplete)
	w.Raw(">")
}

func writeFieldError(w *helpers.Writer, msg string) {
	if msg == "" {
		return
	}
	w.Raw(`<p class="field-error">`)
	w.Text(msg)
	w.Raw("</p>")
}
