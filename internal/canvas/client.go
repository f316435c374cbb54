// Package canvas is the REST client for the course provider. It supplies the
// per-run snapshots of courses, rosters, assignments, and outcomes, plus the
// configuration-page course discovery.
package canvas

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/umgeo/coursesync/internal/models"
	"github.com/umgeo/coursesync/pkg/config"
	apperrors "github.com/umgeo/coursesync/pkg/errors"
)

// Client talks to the course provider API with a static bearer token.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// New constructs a Client from configuration.
func New(cfg config.CanvasConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

// Host returns the API host, used to recognise course links on config pages.
func (c *Client) Host() string {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return ""
	}
	return u.Host
}

// Course fetches a single course snapshot.
func (c *Client) Course(ctx context.Context, courseID int) (*models.Course, error) {
	var course models.Course
	if err := c.get(ctx, fmt.Sprintf("/courses/%d", courseID), nil, &course); err != nil {
		return nil, err
	}
	return &course, nil
}

// CourseUsers lists enrolled users, optionally filtered by enrollment role.
// Follows pagination so large rosters come back complete.
func (c *Client) CourseUsers(ctx context.Context, courseID int, role string) ([]models.CourseUser, error) {
	q := url.Values{}
	q.Set("per_page", "100")
	q.Add("include[]", "email")
	if role != "" {
		q.Add("enrollment_type[]", role)
	}

	return getAll[models.CourseUser](ctx, c, fmt.Sprintf("/courses/%d/users", courseID), q)
}

// Assignments lists the assignments of a course including rubric links.
func (c *Client) Assignments(ctx context.Context, courseID int) ([]models.Assignment, error) {
	q := url.Values{}
	q.Set("per_page", "100")

	return getAll[models.Assignment](ctx, c, fmt.Sprintf("/courses/%d/assignments", courseID), q)
}

// Outcome resolves an outcome ID to its record.
func (c *Client) Outcome(ctx context.Context, outcomeID int) (*models.Outcome, error) {
	var outcome models.Outcome
	if err := c.get(ctx, fmt.Sprintf("/outcomes/%d", outcomeID), nil, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}

// OutcomeLinks lists the outcome group links of a course.
func (c *Client) OutcomeLinks(ctx context.Context, courseID int) ([]models.OutcomeLink, error) {
	q := url.Values{}
	q.Set("outcome_style", "full")
	q.Set("per_page", "100")

	return getAll[models.OutcomeLink](ctx, c, fmt.Sprintf("/courses/%d/outcome_group_links", courseID), q)
}

// CourseIDsFromPage reads the hand-edited configuration page and extracts the
// operative course-ID set from its embedded course links. Returns nil when the
// page is missing or carries no recognisable links, so callers can fall back to
// the static configured set.
func (c *Client) CourseIDsFromPage(ctx context.Context, configCourseID int, pageName string) ([]int, error) {
	var page models.Page
	err := c.get(ctx, fmt.Sprintf("/courses/%d/pages/%s", configCourseID, url.PathEscape(pageName)), nil, &page)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			c.logger.Warn("config course page not found",
				zap.Int("course_id", configCourseID), zap.String("page", pageName))
			return nil, nil
		}
		return nil, err
	}

	return courseIDsFromHTML(page.Body, c.Host()), nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	_, err := c.do(ctx, u, out)
	return err
}

// getAll fetches a list endpoint page by page, following the Link rel="next"
// response headers until the collection is exhausted.
func getAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var all []T
	for u != "" {
		var page []T
		next, err := c.do(ctx, u, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		u = next
	}
	return all, nil
}

// do performs a single GET against rawURL and returns the next-page URL from
// the response's Link header, empty when there is no further page.
func (c *Client) do(ctx context.Context, rawURL string, out interface{}) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrConnection.Code, "course provider unreachable")
	}
	defer resp.Body.Close()

	path := req.URL.Path
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", apperrors.Clone(apperrors.ErrConnection, fmt.Sprintf("course provider rejected credentials for %s", path))
	case resp.StatusCode == http.StatusNotFound:
		return "", apperrors.Clone(apperrors.ErrNotFound, fmt.Sprintf("course provider resource %s not found", path))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", apperrors.Clone(apperrors.ErrRemote,
			fmt.Sprintf("course provider returned status %d for %s: %s", resp.StatusCode, path, string(body)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return "", apperrors.Wrap(err, apperrors.ErrRemote.Code, fmt.Sprintf("failed to decode response for %s", path))
		}
	}
	return nextPageURL(resp.Header.Get("Link")), nil
}

var nextLinkPattern = regexp.MustCompile(`<([^>]+)>\s*;\s*rel="next"`)

func nextPageURL(header string) string {
	for _, part := range strings.Split(header, ",") {
		if m := nextLinkPattern.FindStringSubmatch(part); m != nil {
			return m[1]
		}
	}
	return ""
}
