package apiclient

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Dhanushranga1/Resumitory/internal/domain/model"
)

// ListApplications: GET /applications/?search=&status=.
// Пустой search и статус "" или "all" не передаются.
func (c *Client) ListApplications(ctx context.Context, search, status string) ([]model.Application, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	if status != "" && status != "all" {
		query.Set("status", status)
	}

	var apps []model.Application
	err := c.do(ctx, request{
		op:     "list_applications",
		method: http.MethodGet,
		path:   "/applications/",
		query:  query,
	}, &apps)
	if err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []model.Application{}
	}
	return apps, nil
}

// GetApplication: GET /applications/{id}.
func (c *Client) GetApplication(ctx context.Context, id string) (*model.Application, error) {
	var app model.Application
	err := c.do(ctx, request{
		op:     "get_application",
		method: http.MethodGet,
		path:   "/applications/" + url.PathEscape(id),
	}, &app)
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// CreateApplication: POST /applications/.
func (c *Client) CreateApplication(ctx context.Context, draft model.ApplicationDraft) (*model.Application, error) {
	req, err := jsonRequest("create_application", http.MethodPost, "/applications/", draft)
	if err != nil {
		return nil, err
	}
	var app model.Application
	if err := c.do(ctx, req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// QuickCreateApplication: POST /applications/quick.
func (c *Client) QuickCreateApplication(ctx context.Context, draft model.QuickDraft) (*model.Application, error) {
	req, err := jsonRequest("quick_create_application", http.MethodPost, "/applications/quick", draft)
	if err != nil {
		return nil, err
	}
	var app model.Application
	if err := c.do(ctx, req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// UpdateApplication: PATCH /applications/{id}.
func (c *Client) UpdateApplication(ctx context.Context, id string, patch model.ApplicationPatch) (*model.Application, error) {
	req, err := jsonRequest("update_application", http.MethodPatch, "/applications/"+url.PathEscape(id), patch)
	if err != nil {
		return nil, err
	}
	var app model.Application
	if err := c.do(ctx, req, &app); err != nil {
		return nil, err
	}
	return &app, nil
}

// DeleteApplication: DELETE /applications/{id}.
func (c *Client) DeleteApplication(ctx context.Context, id string) error {
	return c.do(ctx, request{
		op:     "delete_application",
		method: http.MethodDelete,
		path:   "/applications/" + url.PathEscape(id),
	}, nil)
}

// ApplicationStats: GET /applications/stats/summary.
func (c *Client) ApplicationStats(ctx context.Context) (*model.Stats, error) {
	var stats model.Stats
	err := c.do(ctx, request{
		op:     "application_stats",
		method: http.MethodGet,
		path:   "/applications/stats/summary",
	}, &stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
