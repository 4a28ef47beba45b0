package pagination

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

const (
	// DefaultPageSize defines the fallback number of items returned when the client omits pageSize.
	DefaultPageSize = 20
	// DefaultMaxPageSize caps the supported pageSize to prevent unbounded queries.
	DefaultMaxPageSize = 100
)

// Order describes a single order-by clause.
type Order struct {
	Field string
	Desc  bool
}

// Params bundles offset pagination and sorting values extracted from a request.
type Params struct {
	Page     int
	PageSize int
	Orders   []Order
}

// Offset returns the number of rows to skip for the requested page.
func (p Params) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Options control how Parse behaves for a given handler.
type Options struct {
	DefaultPageSize    int
	MaxPageSize        int
	AllowedOrderFields []string
	DefaultOrders      []Order
}

var (
	ErrInvalidPage     = errors.New("pagination: invalid page")
	ErrInvalidPageSize = errors.New("pagination: invalid pageSize")
	ErrInvalidOrderBy  = errors.New("pagination: invalid orderBy")
)

// Parse consumes page, pageSize and orderBy from the query. Unlike the admin
// console, which clamps bad input, the API rejects it.
func Parse(values url.Values, opts Options) (Params, error) {
	if values == nil {
		values = url.Values{}
	}

	page, err := parsePositive(values.Get("page"), 1, ErrInvalidPage)
	if err != nil {
		return Params{}, err
	}
	pageSize, err := parsePageSize(values.Get("pageSize"), opts)
	if err != nil {
		return Params{}, err
	}
	orders, err := parseOrder(values["orderBy"], opts.AllowedOrderFields)
	if err != nil {
		return Params{}, err
	}
	if len(orders) == 0 && len(opts.DefaultOrders) > 0 {
		orders = append([]Order(nil), opts.DefaultOrders...)
	}

	return Params{Page: page, PageSize: pageSize, Orders: orders}, nil
}

// Encode writes the params back as query values, omitting defaults.
func (p Params) Encode(values url.Values, opts Options) {
	if p.Page > 1 {
		values.Set("page", strconv.Itoa(p.Page))
	} else {
		values.Del("page")
	}
	if p.PageSize > 0 && p.PageSize != defaultPageSize(opts) {
		values.Set("pageSize", strconv.Itoa(p.PageSize))
	} else {
		values.Del("pageSize")
	}
	values.Del("orderBy")
	for _, o := range p.Orders {
		dir := "asc"
		if o.Desc {
			dir = "desc"
		}
		values.Add("orderBy", o.Field+":"+dir)
	}
}

func parsePositive(raw string, fallback int, sentinel error) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: must be an integer", sentinel)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", sentinel)
	}
	return value, nil
}

func defaultPageSize(opts Options) int {
	maxPageSize := opts.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	size := opts.DefaultPageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return size
}

func parsePageSize(raw string, opts Options) (int, error) {
	value, err := parsePositive(raw, defaultPageSize(opts), ErrInvalidPageSize)
	if err != nil {
		return 0, err
	}
	maxPageSize := opts.MaxPageSize
	if maxPageSize <= 0 {
		maxPageSize = DefaultMaxPageSize
	}
	if value > maxPageSize {
		value = maxPageSize
	}
	return value, nil
}

func parseOrder(values []string, allowed []string) ([]Order, error) {
	if len(values) == 0 {
		return nil, nil
	}
	if len(allowed) == 0 {
		return nil, fmt.Errorf("%w: ordering not supported", ErrInvalidOrderBy)
	}
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, field := range allowed {
		allowedSet[field] = struct{}{}
	}

	seen := make(map[string]struct{})
	var orders []Order
	for _, raw := range values {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			field, dir, _ := strings.Cut(part, ":")
			field = strings.TrimSpace(field)
			if _, ok := allowedSet[field]; !ok {
				return nil, fmt.Errorf("%w: field %q is not allowed", ErrInvalidOrderBy, field)
			}
			var desc bool
			switch strings.ToLower(strings.TrimSpace(dir)) {
			case "", "asc":
			case "desc":
				desc = true
			default:
				return nil, fmt.Errorf("%w: direction %q", ErrInvalidOrderBy, dir)
			}
			if _, dup := seen[field]; dup {
				continue
			}
			seen[field] = struct{}{}
			orders = append(orders, Order{Field: field, Desc: desc})
		}
	}
	return orders, nil
}
