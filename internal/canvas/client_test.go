package canvas

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umgeo/coursesync/internal/models"
	"github.com/umgeo/coursesync/pkg/config"
	apperrors "github.com/umgeo/coursesync/pkg/errors"
)

func newClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.CanvasConfig{
		BaseURL: srv.URL,
		Token:   "tok-abc",
		Timeout: 5 * time.Second,
	}, nil)
}

func TestCourse(t *testing.T) {
	var gotAuth string
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/courses/314", r.URL.Path)
		fmt.Fprint(w, `{"id":314,"name":"Intro to GIS","course_code":"GEOG101"}`)
	}))

	course, err := c.Course(context.Background(), 314)

	require.NoError(t, err)
	assert.Equal(t, &models.Course{ID: 314, Name: "Intro to GIS", CourseCode: "GEOG101"}, course)
	assert.Equal(t, "Bearer tok-abc", gotAuth)
}

func TestCourseUsersRoleFilter(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "teacher", q.Get("enrollment_type[]"))
		assert.Equal(t, "100", q.Get("per_page"))
		fmt.Fprint(w, `[{"login_id":"prof","sis_login_id":"prof"}]`)
	}))

	users, err := c.CourseUsers(context.Background(), 314, models.RoleTeacher)

	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "prof", users[0].LoginID)
}

func TestCourseUsersFollowsPagination(t *testing.T) {
	var srvURL string
	mux := http.NewServeMux()
	mux.HandleFunc("/courses/314/users", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"login_id":"stu101","sis_login_id":"stu101"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(
			`<%s/courses/314/users?page=2&per_page=100>; rel="next", <%s/courses/314/users?page=1&per_page=100>; rel="first"`,
			srvURL, srvURL))
		fmt.Fprint(w, `[{"login_id":"stu001","sis_login_id":"stu001"}]`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c := New(config.CanvasConfig{BaseURL: srv.URL, Token: "t", Timeout: 5 * time.Second}, nil)

	users, err := c.CourseUsers(context.Background(), 314, "")

	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "stu001", users[0].LoginID)
	assert.Equal(t, "stu101", users[1].LoginID)
}

func TestNextPageURL(t *testing.T) {
	header := `<https://lms.example/api/v1/courses/1/users?page=3>; rel="next", <https://lms.example/api/v1/courses/1/users?page=1>; rel="first"`
	assert.Equal(t, "https://lms.example/api/v1/courses/1/users?page=3", nextPageURL(header))
	assert.Equal(t, "", nextPageURL(`<https://lms.example/x?page=9>; rel="last"`))
	assert.Equal(t, "", nextPageURL(""))
}

func TestOutcomeNotFound(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Outcome(context.Background(), 7001)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrNotFound))
}

func TestGetRejectedCredentials(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := c.Course(context.Background(), 314)

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrConnection))
}

func TestCourseIDsFromPage(t *testing.T) {
	var host string
	mux := http.NewServeMux()
	mux.HandleFunc("/courses/1/pages/course-ids", func(w http.ResponseWriter, _ *http.Request) {
		body := fmt.Sprintf(
			`<p><a href=%q>one</a> <a href=%q>two</a></p>`,
			"https://"+host+"/courses/314",
			"https://"+host+"/courses/159",
		)
		fmt.Fprintf(w, `{"title":"course-ids","body":%q}`, body)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(config.CanvasConfig{BaseURL: srv.URL, Token: "t", Timeout: 5 * time.Second}, nil)
	host = c.Host()

	ids, err := c.CourseIDsFromPage(context.Background(), 1, "course-ids")

	require.NoError(t, err)
	assert.Equal(t, []int{159, 314}, ids)
}

func TestCourseIDsFromPageMissingPageFallsBack(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	ids, err := c.CourseIDsFromPage(context.Background(), 1, "course-ids")

	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestOutcomeLinks(t *testing.T) {
	c := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "full", r.URL.Query().Get("outcome_style"))
		fmt.Fprint(w, `[{"outcome":{"id":7001,"title":"GIS Skills"}}]`)
	}))

	links, err := c.OutcomeLinks(context.Background(), 314)

	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 7001, links[0].Outcome.ID)
}
