package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/starford/foodly/internal/models"
)

func TestListPath(t *testing.T) {
	tags := []models.Tag{{Slug: "vegan"}, {Slug: "gluten-free"}}

	tests := []struct {
		name   string
		query  string
		filter []models.Tag
		want   string
	}{
		{"bare", "", nil, "/recipes"},
		{"filter only", "", tags, "/recipes?tags[]=vegan&tags[]=gluten-free"},
		{"query only", "shrimp", nil, "/recipes/search/shrimp?page=1&per_page=12"},
		{"query and filter", "shrimp", tags[:1], "/recipes/search/shrimp?page=1&per_page=12&tags[]=vegan"},
		{"escaped query", "mac & cheese", nil, "/recipes/search/mac%20&%20cheese?page=1&per_page=12"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ListPath(tc.query, tc.filter, 12))
		})
	}
}

func TestRecipePath(t *testing.T) {
	assert.Equal(t, "/recipes/42", RecipePath(42))
}
