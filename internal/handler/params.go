package handler

import (
	"net/http"
	"strconv"

	"github.com/phm-oh/chatqa-backend/internal/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// pageParams reads ?page= and ?limit= and converts them to list options.
// Out-of-range values clamp instead of erroring; a bad page number is
// not worth a 400 on a read endpoint. Listings come back newest first.
func pageParams(r *http.Request) (page int, opts repository.ListOptions) {
	page = 1
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	limit := defaultPageSize
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, repository.ListOptions{
		Limit:    limit,
		Offset:   (page - 1) * limit,
		SortDesc: true,
	}
}
