package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	ghapi "github.com/cli/go-gh/v2/pkg/api"
	"github.com/m-mizutani/goerr/v2"

	"github.com/yahsan2/enrollctl/pkg/announce"
	"github.com/yahsan2/enrollctl/pkg/assign"
	"github.com/yahsan2/enrollctl/pkg/config"
	"github.com/yahsan2/enrollctl/pkg/invite"
	"github.com/yahsan2/enrollctl/pkg/logging"
)

// Client is a wrapper around the REST client for the platform's admin API
type Client struct {
	rest *ghapi.RESTClient
	cfg  *config.Config
}

// NewClient creates a new client from configuration
func NewClient(cfg *config.Config) (*Client, error) {
	return NewClientWithTransport(cfg, nil)
}

// NewClientWithTransport creates a client using a custom round tripper
func NewClientWithTransport(cfg *config.Config, transport http.RoundTripper) (*Client, error) {
	if cfg == nil {
		return nil, NewConfigurationError("configuration is required", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewConfigurationError("invalid configuration", err)
	}
	if cfg.Token == "" {
		return nil, NewConfigurationError("ENROLLCTL_TOKEN is not set", nil)
	}

	timeout := cfg.API.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	rest, err := ghapi.NewRESTClient(ghapi.ClientOptions{
		Host:               cfg.Host(),
		AuthToken:          cfg.Token,
		Timeout:            timeout,
		Transport:          transport,
		SkipDefaultHeaders: true,
		Headers: map[string]string{
			"Accept":        "application/json",
			"Content-Type":  "application/json",
			"Authorization": "Bearer " + cfg.Token,
		},
	})
	if err != nil {
		return nil, NewConfigurationError("failed to create REST client", err)
	}

	return &Client{
		rest: rest,
		cfg:  cfg,
	}, nil
}

// InstituteID returns the institute the client acts for
func (c *Client) InstituteID() string {
	return c.cfg.Institute.ID
}

// ListTargets lists the institute's package sessions
func (c *Client) ListTargets(ctx context.Context) ([]assign.Target, error) {
	var targets []assign.Target
	if err := c.do(ctx, http.MethodGet, c.cfg.Endpoint("package-sessions"), nil, &targets); err != nil {
		return nil, classify("failed to list package sessions", err)
	}
	return targets, nil
}

// BulkAssign submits a bulk assign request; req.Options.DryRun decides
// whether the server commits.
func (c *Client) BulkAssign(ctx context.Context, req *assign.BulkAssignRequest) (*assign.BulkResponse, error) {
	var resp assign.BulkResponse
	if err := c.do(ctx, http.MethodPost, c.cfg.Endpoint("enrollments", "bulk-assign"), req, &resp); err != nil {
		return nil, classify("bulk assign failed", err)
	}
	return &resp, nil
}

// BulkDeassign submits a bulk de-assign request
func (c *Client) BulkDeassign(ctx context.Context, req *assign.BulkDeassignRequest) (*assign.BulkResponse, error) {
	var resp assign.BulkResponse
	if err := c.do(ctx, http.MethodPost, c.cfg.Endpoint("enrollments", "bulk-deassign"), req, &resp); err != nil {
		return nil, classify("bulk de-assign failed", err)
	}
	return &resp, nil
}

// ListInvites returns one page of invites for a package session
func (c *Client) ListInvites(ctx context.Context, filter invite.Filter) (*invite.Page, error) {
	q := url.Values{}
	q.Set("package_session_id", filter.PackageSessionID)
	if filter.Search != "" {
		q.Set("search", filter.Search)
	}
	q.Set("page", strconv.Itoa(filter.Page))
	q.Set("size", strconv.Itoa(filter.Size))

	var page invite.Page
	path := c.cfg.Endpoint("enroll-invites") + "?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, classify("failed to list invites", err)
	}
	return &page, nil
}

// GetInvite fetches an invite with its payment options
func (c *Client) GetInvite(ctx context.Context, inviteID string) (*invite.Detail, error) {
	var detail invite.Detail
	if err := c.do(ctx, http.MethodGet, c.cfg.Endpoint("enroll-invites", inviteID), nil, &detail); err != nil {
		return nil, classify("failed to get invite", err)
	}
	return &detail, nil
}

// CreateAnnouncement creates (and schedules) an announcement
func (c *Client) CreateAnnouncement(ctx context.Context, a *announce.Announcement) (*announce.Created, error) {
	var created announce.Created
	if err := c.do(ctx, http.MethodPost, c.cfg.Endpoint("announcements"), a, &created); err != nil {
		return nil, classify("failed to create announcement", err)
	}
	return &created, nil
}

// CountTagUsers estimates how many users carry a tag
func (c *Client) CountTagUsers(ctx context.Context, tagID string) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, c.cfg.Endpoint("tags", tagID, "user-count"), nil, &out); err != nil {
		return 0, classify("failed to count tag users", err)
	}
	return out.Count, nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, response interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return goerr.Wrap(err, "failed to encode request body", goerr.V("path", path))
		}
		reader = bytes.NewReader(data)
	}

	start := time.Now()
	err := c.rest.DoWithContext(ctx, method, path, reader, response)
	logging.From(ctx).Debug("api request",
		"method", method,
		"path", path,
		"duration", time.Since(start),
		"error", err)
	return err
}
