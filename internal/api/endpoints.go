package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/starford/foodly/internal/apperr"
	"github.com/starford/foodly/internal/models"
)

// ListRecipes fetches a page of recipes from path, as computed by the caller
// (plain listing, search, or tag-filtered).
func (c *Client) ListRecipes(ctx context.Context, path, token string) (models.Pagination[models.Recipe], error) {
	var page models.Pagination[models.Recipe]
	if err := c.do(ctx, http.MethodGet, path, token, nil, &page); err != nil {
		return page, classify(err, fetchStatus)
	}
	return page, nil
}

// GetRecipe fetches a single recipe. A 404 maps to apperr.ErrNotFound.
func (c *Client) GetRecipe(ctx context.Context, path, token string) (models.Recipe, error) {
	var r models.Recipe
	if err := c.do(ctx, http.MethodGet, path, token, nil, &r); err != nil {
		return r, classify(err, func(status int, msg string) *apperr.Error {
			if status == http.StatusNotFound {
				return apperr.NotFound(msg)
			}
			return apperr.Fetch(status, msg)
		})
	}
	return r, nil
}

// ToggleBookmark flips the caller's bookmark on a recipe and returns the
// server's resulting state.
func (c *Client) ToggleBookmark(ctx context.Context, id int, token string) (bool, error) {
	var bookmarked bool
	path := "/bookmarks/" + strconv.Itoa(id)
	if err := c.do(ctx, http.MethodPut, path, token, nil, &bookmarked); err != nil {
		return false, classify(err, func(status int, msg string) *apperr.Error {
			switch status {
			case http.StatusUnauthorized:
				return apperr.Auth(status, msg)
			case http.StatusNotFound:
				return apperr.NotFound(msg)
			}
			return apperr.Fetch(status, msg)
		})
	}
	return bookmarked, nil
}

// Bookmarks lists the caller's bookmarked recipes.
func (c *Client) Bookmarks(ctx context.Context, page, perPage int, token string) (models.Pagination[models.Recipe], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	var out models.Pagination[models.Recipe]
	if err := c.do(ctx, http.MethodGet, "/bookmarks?"+q.Encode(), token, nil, &out); err != nil {
		return out, classify(err, func(status int, msg string) *apperr.Error {
			if status == http.StatusUnauthorized {
				return apperr.Auth(status, msg)
			}
			return apperr.Fetch(status, msg)
		})
	}
	return out, nil
}

// Tags lists every tag known to the catalog.
func (c *Client) Tags(ctx context.Context) ([]models.Tag, error) {
	var tags []models.Tag
	if err := c.do(ctx, http.MethodGet, "/tags", "", nil, &tags); err != nil {
		return nil, classify(err, fetchStatus)
	}
	return tags, nil
}

// Login exchanges credentials for a bearer token.
// Rejected credentials (400, 401, 404) map to apperr.ErrAuth with the server text.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out models.AuthToken
	in := models.Credentials{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/login", "", in, &out); err != nil {
		return "", classify(err, func(status int, msg string) *apperr.Error {
			if status >= 400 && status < 500 {
				return apperr.Auth(status, msg)
			}
			return apperr.Fetch(status, msg)
		})
	}
	if out.AuthToken == "" {
		return "", apperr.Fetch(http.StatusOK, "login response carried no token")
	}
	return out.AuthToken, nil
}

// Register creates an account. Any rejection is a validation error carrying
// the server's message verbatim; the backend reports duplicate usernames as 500.
func (c *Client) Register(ctx context.Context, username, password string) (models.User, error) {
	var out models.User
	in := models.Credentials{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/register", "", in, &out); err != nil {
		return out, classify(err, apperr.Validation)
	}
	return out, nil
}

// Profile looks up the account behind token. A 401 maps to apperr.ErrStaleToken.
func (c *Client) Profile(ctx context.Context, token string) (models.Profile, error) {
	var out models.Profile
	if err := c.do(ctx, http.MethodGet, "/profile", token, nil, &out); err != nil {
		return out, classify(err, func(status int, msg string) *apperr.Error {
			if status == http.StatusUnauthorized {
				return apperr.StaleToken(msg)
			}
			return apperr.Fetch(status, msg)
		})
	}
	if out.Username == "" {
		return out, apperr.Fetch(http.StatusOK, "profile response carried no username")
	}
	return out, nil
}
