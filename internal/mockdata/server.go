package mockdata

import (
	"cmp"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"finitefield.org/taskboard/internal/platform/httpx"
	"finitefield.org/taskboard/internal/platform/observability"
)

const defaultPageLimit = 10

type record = map[string]any

// Server answers read-only json-server style queries over a Database:
//
//	GET /db                 whole database
//	GET /{collection}       list with filters, _sort/_order, _page/_limit
//	GET /{collection}/{id}  single record
type Server struct {
	collections map[string][]record
}

// NewServer indexes db for querying.
func NewServer(db Database) (*Server, error) {
	raw, err := json.Marshal(db)
	if err != nil {
		return nil, fmt.Errorf("mockdata: encode database: %w", err)
	}
	var collections map[string][]record
	if err := json.Unmarshal(raw, &collections); err != nil {
		return nil, fmt.Errorf("mockdata: index database: %w", err)
	}
	return &Server{collections: collections}, nil
}

// Handler returns the routed HTTP handler with request logging attached.
func (s *Server) Handler(logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(observability.InjectLoggerMiddleware(logger))
	r.Use(observability.RequestLoggerMiddleware())
	r.Use(observability.RecoveryMiddleware(logger))
	r.Use(allowAnyOrigin)

	r.Get("/db", s.database)
	r.Get("/{collection}", s.list)
	r.Get("/{collection}/{id}", s.get)
	return r
}

func allowAnyOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Expose-Headers", "X-Total-Count")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) database(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, s.collections)
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	items, ok := s.collections[chi.URLParam(r, "collection")]
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("collection_not_found", "collection not found", http.StatusNotFound))
		return
	}

	result, total := Query(items, r.URL.Query())
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	httpx.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	items, ok := s.collections[chi.URLParam(r, "collection")]
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("collection_not_found", "collection not found", http.StatusNotFound))
		return
	}
	id := chi.URLParam(r, "id")
	for _, item := range items {
		if stringify(item["id"]) == id {
			httpx.WriteJSON(w, http.StatusOK, item)
			return
		}
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("record_not_found", "record not found", http.StatusNotFound))
}

// Query applies json-server list semantics to items and returns the page
// along with the filtered total:
//
//	field=v        equality; repeated keys match any value
//	field_ne=v     inequality
//	field_gte=v    numeric or lexical lower bound
//	field_lte=v    numeric or lexical upper bound
//	field_like=re  case-insensitive regular expression
//	q=text         any string field contains text
//	_sort, _order  comma-separated fields and asc|desc
//	_page, _limit  1-based page; _limit alone truncates
func Query(items []record, params url.Values) ([]record, int) {
	matched := make([]record, 0, len(items))
	for _, item := range items {
		if matches(item, params) {
			matched = append(matched, item)
		}
	}

	if sortKeys := splitList(params.Get("_sort")); len(sortKeys) > 0 {
		orders := splitList(params.Get("_order"))
		slices.SortStableFunc(matched, func(a, b record) int {
			for i, key := range sortKeys {
				c := compareValues(a[key], b[key])
				if i < len(orders) && strings.EqualFold(orders[i], "desc") {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}

	total := len(matched)
	limit := positiveInt(params.Get("_limit"))
	page := positiveInt(params.Get("_page"))
	switch {
	case page > 0:
		if limit == 0 {
			limit = defaultPageLimit
		}
		start := min((page-1)*limit, total)
		matched = matched[start:min(start+limit, total)]
	case limit > 0:
		matched = matched[:min(limit, total)]
	}
	return matched, total
}

func matches(item record, params url.Values) bool {
	for key, values := range params {
		if strings.HasPrefix(key, "_") || len(values) == 0 {
			continue
		}
		if key == "q" {
			if !containsText(item, values[0]) {
				return false
			}
			continue
		}

		field, op := key, ""
		for _, suffix := range []string{"_gte", "_lte", "_ne", "_like"} {
			if trimmed, ok := strings.CutSuffix(key, suffix); ok {
				field, op = trimmed, suffix
				break
			}
		}
		value, ok := item[field]
		if !ok {
			return false
		}

		switch op {
		case "_gte":
			if compareValues(value, values[0]) < 0 {
				return false
			}
		case "_lte":
			if compareValues(value, values[0]) > 0 {
				return false
			}
		case "_ne":
			if slices.Contains(values, stringify(value)) {
				return false
			}
		case "_like":
			if !likeMatch(stringify(value), values[0]) {
				return false
			}
		default:
			if !slices.Contains(values, stringify(value)) {
				return false
			}
		}
	}
	return true
}

func containsText(item record, text string) bool {
	needle := strings.ToLower(strings.TrimSpace(text))
	if needle == "" {
		return true
	}
	for _, value := range item {
		if s, ok := value.(string); ok && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

func likeMatch(value, pattern string) bool {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return strings.Contains(strings.ToLower(value), strings.ToLower(pattern))
	}
	return re.MatchString(value)
}

// compareValues orders numbers numerically and everything else lexically.
// Query parameters arrive as strings, so a numeric field compared with a
// numeric-looking string is still numeric.
func compareValues(a, b any) int {
	af, aNum := number(a)
	bf, bNum := number(b)
	if aNum && bNum {
		return cmp.Compare(af, bf)
	}
	return strings.Compare(stringify(a), stringify(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func positiveInt(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
