package helpers

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/width"
)

const (
	dateTimeLayout = "2006年01月02日 15:04"
	dateLayout     = "2006年01月02日"
	emptyCell      = "-"
)

var (
	digitsOnly = regexp.MustCompile(`^\d+$`)
	phoneShape = regexp.MustCompile(`^\d{10,11}$`)
	isoDate    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// DateTime formats ts in local time; the zero time renders as "-".
func DateTime(ts time.Time) string {
	if ts.IsZero() {
		return emptyCell
	}
	return ts.In(time.Local).Format(dateTimeLayout)
}

// DateTimeString parses an RFC 3339 timestamp and formats it like DateTime.
func DateTimeString(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return emptyCell
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return emptyCell
	}
	return DateTime(ts)
}

// Date formats a YYYY-MM-DD date or an RFC 3339 timestamp as a calendar date.
func Date(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return emptyCell
	}
	if isoDate.MatchString(raw) {
		return raw[0:4] + "年" + raw[5:7] + "月" + raw[8:10] + "日"
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return emptyCell
	}
	return ts.In(time.Local).Format(dateLayout)
}

// Relative returns a coarse "time ago" string relative to now.
func Relative(ts, now time.Time) string {
	diff := now.Sub(ts)
	switch {
	case diff < time.Minute:
		return "たった今"
	case diff < time.Hour:
		return strconv.Itoa(int(diff.Minutes())) + "分前"
	case diff < 24*time.Hour:
		return strconv.Itoa(int(diff.Hours())) + "時間前"
	default:
		return ts.In(time.Local).Format(dateLayout)
	}
}

// RemovePhoneHyphens strips every hyphen from a phone number.
func RemovePhoneHyphens(phone string) string {
	return strings.ReplaceAll(phone, "-", "")
}

// IsValidPhoneFormat reports whether phone consists of digits once hyphens are removed.
func IsValidPhoneFormat(phone string) bool {
	if phone == "" {
		return false
	}
	return digitsOnly.MatchString(RemovePhoneHyphens(phone))
}

// IsPhoneNumber reports whether input looks like a 10 or 11 digit Japanese number.
// Full-width digits and hyphens are folded to their ASCII forms first.
func IsPhoneNumber(input string) bool {
	if input == "" {
		return false
	}
	return phoneShape.MatchString(RemovePhoneHyphens(width.Narrow.String(input)))
}

// PhoneSearchPatterns returns the hyphen-free and hyphenated spellings of a
// phone number so either stored form matches. Non-numeric input is returned as-is.
func PhoneSearchPatterns(phone string) []string {
	if phone == "" {
		return nil
	}
	if !IsValidPhoneFormat(phone) {
		return []string{phone}
	}

	plain := RemovePhoneHyphens(phone)
	hyphenated := phone
	switch {
	case len(plain) == 11 && strings.HasPrefix(plain, "0"):
		hyphenated = plain[:3] + "-" + plain[3:7] + "-" + plain[7:]
	case len(plain) == 10 && (strings.HasPrefix(plain, "03") || strings.HasPrefix(plain, "06")):
		hyphenated = plain[:2] + "-" + plain[2:6] + "-" + plain[6:]
	case len(plain) == 10 && strings.HasPrefix(plain, "0"):
		hyphenated = plain[:3] + "-" + plain[3:6] + "-" + plain[6:]
	}
	if hyphenated == plain {
		return []string{plain}
	}
	return []string{plain, hyphenated}
}

// IsHalfWidth reports whether input only contains printable ASCII.
func IsHalfWidth(input string) bool {
	for _, r := range input {
		if r < 0x20 || r > 0x7e {
			return false
		}
	}
	return true
}

// BadgeClass maps semantic tones to utility classes.
func BadgeClass(tone string) string {
	switch tone {
	case "success":
		return "badge badge-success"
	case "warning":
		return "badge badge-warning"
	case "danger":
		return "badge badge-danger"
	default:
		return "badge"
	}
}

// ButtonClass returns the button style for the given variant.
func ButtonClass(variant string) string {
	switch variant {
	case "primary":
		return "btn btn-primary"
	case "danger":
		return "btn btn-danger"
	default:
		return "btn"
	}
}

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)
	markdownPolicy = newMarkdownPolicy()
)

func newMarkdownPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// MarkdownHTML renders src as sanitised HTML.
func MarkdownHTML(src string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(markdownPolicy.Sanitize(buf.String())), nil
}

// Markdown returns a component rendering src as sanitised HTML.
func Markdown(src string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		out, err := MarkdownHTML(src)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}

// TextComponent returns a templ component that renders escaped text.
func TextComponent(value string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := io.WriteString(w, templ.EscapeString(value))
		return err
	})
}
