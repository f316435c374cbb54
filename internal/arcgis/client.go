// Package arcgis is the REST client for the GIS content store. It wraps the
// portal sharing API: group search and membership, per-user folders and items,
// item copy and reassignment. All calls run under the configured service
// account identity.
package arcgis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/umgeo/coursesync/internal/models"
	"github.com/umgeo/coursesync/pkg/config"
	apperrors "github.com/umgeo/coursesync/pkg/errors"
)

const tokenLifetimeMinutes = 120

// Client talks to the portal sharing REST API.
type Client struct {
	orgURL   string
	username string
	password string
	client   *http.Client
	logger   *zap.Logger

	token       string
	tokenExpiry time.Time
}

// apiError is the structured error the portal embeds in 200 responses.
type apiError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *apiError) text() string {
	if len(e.Details) > 0 {
		return e.Message + ": " + strings.Join(e.Details, "; ")
	}
	return e.Message
}

// Connect authenticates against the portal and returns a ready client. Invalid
// credentials or an unreachable org URL fail the whole run.
func Connect(ctx context.Context, cfg config.ArcGISConfig, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		orgURL:   strings.TrimRight(cfg.OrgURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
	}

	if err := c.refreshToken(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Username returns the service account identity the client operates as.
func (c *Client) Username() string {
	return c.username
}

func (c *Client) refreshToken(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)
	form.Set("referer", c.orgURL)
	form.Set("expiration", fmt.Sprintf("%d", tokenLifetimeMinutes))
	form.Set("f", "json")

	var out struct {
		Token   string    `json:"token"`
		Expires int64     `json:"expires"`
		Error   *apiError `json:"error"`
	}
	if err := c.call(ctx, http.MethodPost, "/sharing/rest/generateToken", form, &out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrConnection.Code, "content store connection invalid")
	}
	if out.Error != nil || out.Token == "" {
		msg := "no token returned"
		if out.Error != nil {
			msg = out.Error.text()
		}
		return apperrors.Clone(apperrors.ErrConnection, "content store connection invalid: "+msg)
	}

	c.token = out.Token
	c.tokenExpiry = time.UnixMilli(out.Expires)
	return nil
}

func (c *Client) ensureToken(ctx context.Context) error {
	if c.token != "" && time.Until(c.tokenExpiry) > time.Minute {
		return nil
	}
	return c.refreshToken(ctx)
}

// SearchGroupByTitle searches groups by exact title and returns the first
// match, or nil when none exists. The wildcard characters ? and * are escaped
// so titles containing them match literally.
func (c *Client) SearchGroupByTitle(ctx context.Context, title string) (*models.Group, error) {
	query := "title:" + escapeSearch(title)

	form := url.Values{}
	form.Set("q", query)
	form.Set("num", "10")

	var out struct {
		Results []models.Group `json:"results"`
		Error   *apiError      `json:"error"`
	}
	if err := c.request(ctx, http.MethodGet, "/sharing/rest/community/groups", form, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, apperrors.Clone(apperrors.ErrRemote, "group search failed: "+out.Error.text())
	}

	for _, g := range out.Results {
		if g.Title == title {
			return &g, nil
		}
	}
	if len(out.Results) > 0 {
		g := out.Results[len(out.Results)-1]
		return &g, nil
	}
	return nil, nil
}

// CreateGroup creates a private group with the given title and tags.
func (c *Client) CreateGroup(ctx context.Context, title string, tags []string) (*models.Group, error) {
	form := url.Values{}
	form.Set("title", title)
	form.Set("tags", strings.Join(tags, ","))
	form.Set("access", "private")

	var out struct {
		Success bool         `json:"success"`
		Group   models.Group `json:"group"`
		Error   *apiError    `json:"error"`
	}
	if err := c.request(ctx, http.MethodPost, "/sharing/rest/community/createGroup", form, &out); err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, apperrors.Clone(apperrors.ErrRemote, "group create failed: "+out.Error.text())
	}
	return &out.Group, nil
}

// GroupMembers fetches current group membership split into role buckets.
func (c *Client) GroupMembers(ctx context.Context, groupID string) (models.GroupMembers, error) {
	var out struct {
		models.GroupMembers
		Error *apiError `json:"error"`
	}
	path := fmt.Sprintf("/sharing/rest/community/groups/%s/users", url.PathEscape(groupID))
	if err := c.request(ctx, http.MethodGet, path, url.Values{}, &out); err != nil {
		return models.GroupMembers{}, err
	}
	if out.Error != nil {
		return models.GroupMembers{}, apperrors.Clone(apperrors.ErrRemote, "group member fetch failed: "+out.Error.text())
	}
	return out.GroupMembers, nil
}

// AddGroupMembers adds users to a group. Users the backend could not add are
// reported in the result, not as an error.
func (c *Client) AddGroupMembers(ctx context.Context, groupID string, logins []string) (models.MemberUpdateResult, error) {
	form := url.Values{}
	form.Set("users", strings.Join(logins, ","))

	var out struct {
		NotAdded []string  `json:"notAdded"`
		Error    *apiError `json:"error"`
	}
	path := fmt.Sprintf("/sharing/rest/community/groups/%s/addUsers", url.PathEscape(groupID))
	if err := c.request(ctx, http.MethodPost, path, form, &out); err != nil {
		return models.MemberUpdateResult{}, err
	}
	if out.Error != nil {
		return models.MemberUpdateResult{}, apperrors.Clone(apperrors.ErrRemote, "member add failed: "+out.Error.text())
	}
	return models.MemberUpdateResult{NotAdded: out.NotAdded}, nil
}

// RemoveGroupMembers removes users from a group. Users the backend could not
// remove are reported in the result, not as an error.
func (c *Client) RemoveGroupMembers(ctx context.Context, groupID string, logins []string) (models.MemberUpdateResult, error) {
	form := url.Values{}
	form.Set("users", strings.Join(logins, ","))

	var out struct {
		NotRemoved []string  `json:"notRemoved"`
		Error      *apiError `json:"error"`
	}
	path := fmt.Sprintf("/sharing/rest/community/groups/%s/removeUsers", url.PathEscape(groupID))
	if err := c.request(ctx, http.MethodPost, path, form, &out); err != nil {
		return models.MemberUpdateResult{}, err
	}
	if out.Error != nil {
		return models.MemberUpdateResult{}, apperrors.Clone(apperrors.ErrRemote, "member remove failed: "+out.Error.text())
	}
	return models.MemberUpdateResult{NotRemoved: out.NotRemoved}, nil
}

// escapeSearch quotes the characters that are wildcards in group search.
func escapeSearch(s string) string {
	s = strings.ReplaceAll(s, "?", `\?`)
	s = strings.ReplaceAll(s, "*", `\*`)
	return s
}

// request performs an authenticated call, refreshing the token when needed.
func (c *Client) request(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	if err := c.ensureToken(ctx); err != nil {
		return err
	}
	if form == nil {
		form = url.Values{}
	}
	form.Set("token", c.token)
	form.Set("f", "json")
	return c.call(ctx, method, path, form, out)
}

func (c *Client) call(ctx context.Context, method, path string, form url.Values, out interface{}) error {
	var req *http.Request
	var err error

	switch method {
	case http.MethodGet:
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, c.orgURL+path+"?"+form.Encode(), nil)
	default:
		req, err = http.NewRequestWithContext(ctx, method, c.orgURL+path, strings.NewReader(form.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to build request")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrRemote.Code, "content store unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.Clone(apperrors.ErrRemote,
			fmt.Sprintf("content store returned status %d for %s", resp.StatusCode, path))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrRemote.Code, "failed to decode response for "+path)
	}
	return nil
}
