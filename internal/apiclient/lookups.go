package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"caseintake/internal/models"
)

// CaseCategories returns the active case categories, restricted to country
// when one is given.
func (c *Client) CaseCategories(ctx context.Context, token, country string) ([]models.CaseCategoryOption, error) {
	q := url.Values{"active": {"true"}}
	if country != "" {
		q.Set("country", country)
	}
	var out struct {
		Categories []models.CaseCategoryOption `json:"categories"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/api/case-categories", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Categories, nil
}

// Profile returns the user owning token.
func (c *Client) Profile(ctx context.Context, token string) (models.Profile, error) {
	var out struct {
		User models.Profile `json:"user"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/api/user/profile", nil, nil, &out); err != nil {
		return models.Profile{}, err
	}
	return out.User, nil
}

// UsersByRole lists users of a role, used by admins to pick the doctor a case
// is assigned to.
func (c *Client) UsersByRole(ctx context.Context, token string, role models.Role) ([]models.Profile, error) {
	q := url.Values{"role": {string(role)}}
	var out struct {
		Users []models.Profile `json:"users"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/api/user/profile", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// OtherAdmins lists the admin accounts besides the caller.
func (c *Client) OtherAdmins(ctx context.Context, token string) ([]models.AdminAccount, error) {
	var out struct {
		Admins []models.AdminAccount `json:"admins"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/api/admin/other-admins", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Admins, nil
}

// CreateAdmin registers another admin account.
func (c *Client) CreateAdmin(ctx context.Context, token string, admin models.AdminAccount) (models.AdminAccount, error) {
	var out struct {
		Admin models.AdminAccount `json:"admin"`
	}
	if err := c.do(ctx, token, http.MethodPost, "/api/admin/other-admins", nil, admin, &out); err != nil {
		return models.AdminAccount{}, err
	}
	return out.Admin, nil
}
