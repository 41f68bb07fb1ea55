// Package models defines the domain types for Foodly.
package models

import "encoding/json"

// Recipe is a catalog entry as served by the recipes API.
//
// Bookmarked and Owned are nil when the server could not resolve them for the
// caller (anonymous request) and non-nil once resolved for a session.
type Recipe struct {
	ID           int             `json:"id"`
	Title        string          `json:"title"`
	Servings     string          `json:"servings"`
	Timer        *int            `json:"timer"`
	Kcal         *int            `json:"kcal"`
	Carbs        *int            `json:"carbs"`
	Proteins     *int            `json:"proteins"`
	Fats         *int            `json:"fats"`
	Image        json.RawMessage `json:"image,omitempty"`
	Instructions []string        `json:"instructions"`
	Ingredients  []Ingredient    `json:"ingredients"`
	Tags         []string        `json:"tags"`
	Bookmarked   *bool           `json:"bookmarked"`
	Owned        *bool           `json:"owned"`
	CreatedAt    *string         `json:"created_at"`
	UpdatedAt    *string         `json:"updated_at"`
}

// WithBookmark returns a copy of r with Bookmarked set to v.
// The pointer is freshly allocated so copies sharing the old one are unaffected.
func (r Recipe) WithBookmark(v bool) Recipe {
	r.Bookmarked = &v
	return r
}

// Ingredient is one line of a recipe's ingredient list.
type Ingredient struct {
	Unit   *string  `json:"unit"`
	Label  string   `json:"label"`
	Amount *float64 `json:"amount"`
}

// Tag is a filter facet. Slug is unique and used as the filter key.
type Tag struct {
	Label string `json:"label"`
	Slug  string `json:"slug"`
}

// Pagination is the list envelope returned by paginated endpoints.
type Pagination[T any] struct {
	Records     []T `json:"records"`
	Total       int `json:"total"`
	CurrentPage int `json:"current_page"`
	PerPage     int `json:"per_page"`
}

// User is the account returned by registration.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
}

// Profile is the payload of the profile lookup used to validate a session.
type Profile struct {
	Username string `json:"username"`
}

// Credentials is the login and registration request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthToken is the login response body.
type AuthToken struct {
	AuthToken string `json:"AuthToken"`
}
