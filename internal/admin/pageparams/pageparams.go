// Package pageparams reads and writes the page and pageSize query parameters
// of a view.
package pageparams

import (
	"net/url"
	"strconv"
	"strings"

	"finitefield.org/taskboard/internal/admin/querystate"
	"finitefield.org/taskboard/internal/platform/pagination"
)

const (
	pageParam     = "page"
	pageSizeParam = "pageSize"
)

// State is the resolved pagination of a view.
type State struct {
	Page     int
	PageSize int
	Offset   int
}

// Params converts the state into API pagination parameters.
func (s State) Params() pagination.Params {
	return pagination.Params{Page: s.Page, PageSize: s.PageSize}
}

// TotalPages returns the page count for total items, never less than 1.
func (s State) TotalPages(total int64) int {
	if s.PageSize <= 0 || total <= 0 {
		return 1
	}
	return int((total + int64(s.PageSize) - 1) / int64(s.PageSize))
}

// Adapter derives State from a query store. It never touches filter parameters.
type Adapter struct {
	store           querystate.Store
	defaultPageSize int
}

// New returns an adapter over store. defaultPageSize below 1 is treated as 1.
func New(store querystate.Store, defaultPageSize int) *Adapter {
	return &Adapter{store: store, defaultPageSize: max(1, defaultPageSize)}
}

// State reads page and pageSize. Absent values use the defaults, values that
// do not parse become 1, and every value is clamped to at least 1.
func (a *Adapter) State() State {
	page := a.read(pageParam, 1)
	size := a.read(pageSizeParam, a.defaultPageSize)
	return State{Page: page, PageSize: size, Offset: (page - 1) * size}
}

func (a *Adapter) read(key string, fallback int) int {
	raw, ok := a.store.Get(key)
	raw = strings.TrimSpace(raw)
	if !ok || raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 1
	}
	return max(1, n)
}

// SetPage writes page.
func (a *Adapter) SetPage(page int) {
	a.store.Replace(func(v url.Values) {
		v.Set(pageParam, strconv.Itoa(page))
	})
}

// SetPageSize writes pageSize and resets page to 1.
func (a *Adapter) SetPageSize(size int) {
	a.store.Replace(func(v url.Values) {
		v.Set(pageSizeParam, strconv.Itoa(size))
		v.Set(pageParam, "1")
	})
}

// SetPageAndSize writes both values in one navigation.
func (a *Adapter) SetPageAndSize(page, size int) {
	a.store.Replace(func(v url.Values) {
		v.Set(pageParam, strconv.Itoa(page))
		v.Set(pageSizeParam, strconv.Itoa(size))
	})
}

// Reset removes both parameters.
func (a *Adapter) Reset() {
	a.store.Replace(func(v url.Values) {
		v.Del(pageParam)
		v.Del(pageSizeParam)
	})
}
