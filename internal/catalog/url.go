package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/starford/foodly/internal/models"
)

// ListPath returns the collection path for a search state, relative to the
// API root. Without a query it is /recipes, with tag filters appended as
// repeated tags[]=slug parameters in filter order. With a query it is
// /recipes/search/{query}?page=1&per_page=N followed by the same tag
// parameters.
func ListPath(query string, filter []models.Tag, perPage int) string {
	var params []string
	path := "/recipes"
	if query != "" {
		path += "/search/" + url.PathEscape(query)
		params = append(params, "page=1", "per_page="+strconv.Itoa(perPage))
	}
	for _, t := range filter {
		params = append(params, "tags[]="+url.QueryEscape(t.Slug))
	}
	if len(params) == 0 {
		return path
	}
	return path + "?" + strings.Join(params, "&")
}

// RecipePath returns the path of one recipe.
func RecipePath(id int) string {
	return "/recipes/" + strconv.Itoa(id)
}
