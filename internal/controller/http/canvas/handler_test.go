package canvas

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gradesSqlite "github.com/quipper/poc/grader/internal/repositories/grades/sqlite"
	rosterSqlite "github.com/quipper/poc/grader/internal/repositories/roster/sqlite"
	"github.com/quipper/poc/grader/pkg/common/keys"
)

const testIssuer = "http://sandbox.test"

type sandbox struct {
	srv   *httptest.Server
	token string
}

func setup(t *testing.T) *sandbox {
	t.Helper()
	roster, err := rosterSqlite.NewSQLiteRepo(":memory:")
	require.NoError(t, err)
	t.Cleanup(roster.Disconnect)
	grades, err := gradesSqlite.NewSQLiteRepo(":memory:")
	require.NoError(t, err)
	t.Cleanup(grades.Disconnect)

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	kr, err := keys.New(key, "test")
	require.NoError(t, err)
	token, err := kr.Mint(testIssuer, "teacher", time.Hour)
	require.NoError(t, err)

	srv := httptest.NewServer(NewHandler(roster, grades, kr, testIssuer, 10).Router())
	t.Cleanup(srv.Close)
	return &sandbox{srv: srv, token: token}
}

func (s *sandbox) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.srv.URL+path, body)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+s.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (s *sandbox) enroll(t *testing.T, course, login, role string) int64 {
	t.Helper()
	body := fmt.Sprintf(`{"login_id":%q,"name":%q,"role":%q}`, login, strings.ToUpper(login), role)
	resp := s.do(t, http.MethodPost, "/api/v1/courses/"+course+"/enrollments", "application/json", strings.NewReader(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var e struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e.ID
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHealthAndJWKSArePublic(t *testing.T) {
	s := setup(t)

	resp, err := http.Get(s.srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(s.srv.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	doc := decode[map[string][]map[string]any](t, resp)
	assert.Len(t, doc["keys"], 1)
}

func TestRequireBearer(t *testing.T) {
	s := setup(t)

	tests := []struct {
		name string
		auth string
	}{
		{name: "missing", auth: ""},
		{name: "not bearer", auth: "Basic abc"},
		{name: "garbage token", auth: "Bearer not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(http.MethodGet, s.srv.URL+"/api/v1/courses/1/users", nil)
			require.NoError(t, err)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			body := decode[map[string][]apiError](t, resp)
			require.Len(t, body["errors"], 1)
		})
	}
}

func TestListUsersPagination(t *testing.T) {
	s := setup(t)
	for i := 1; i <= 25; i++ {
		s.enroll(t, "101", fmt.Sprintf("net%02d", i), "student")
	}
	s.enroll(t, "101", "prof", "teacher")

	sizes := []int{}
	for page := 1; page <= 4; page++ {
		resp := s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/courses/101/users?enrollment_type=student&page=%d", page), "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		items := decode[[]map[string]any](t, resp)
		sizes = append(sizes, len(items))

		links := strings.Join(resp.Header.Values("Link"), ",")
		assert.Contains(t, links, `rel="last"`)
		if page < 3 {
			assert.Contains(t, links, `rel="next"`)
		} else {
			assert.NotContains(t, links, `rel="next"`)
		}
		if page == 1 {
			assert.Equal(t, "net01", items[0]["login_id"])
		}
	}
	assert.Equal(t, []int{10, 10, 5, 0}, sizes)

	resp := s.do(t, http.MethodGet, "/api/v1/courses/101/users?per_page=500", "", nil)
	items := decode[[]map[string]any](t, resp)
	assert.Len(t, items, 26, "per_page is capped at 100 and no role filter lists everyone")
}

func TestListUsersEmptyCourseIsEmptyArray(t *testing.T) {
	s := setup(t)
	resp := s.do(t, http.MethodGet, "/api/v1/courses/404/users?page=1", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "[]", strings.TrimSpace(string(b)))
}

func TestListUsersInvalidPage(t *testing.T) {
	s := setup(t)
	for _, p := range []string{"0", "-1", "abc"} {
		resp := s.do(t, http.MethodGet, "/api/v1/courses/101/users?page="+p, "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "page=%s", p)
	}
}

func TestUpdateGrades(t *testing.T) {
	s := setup(t)
	a := s.enroll(t, "101", "abc", "student")
	b := s.enroll(t, "101", "xyz", "student")
	ta := s.enroll(t, "101", "helper", "ta")

	form := url.Values{}
	form.Set(fmt.Sprintf("grade_data[%d][posted_grade]", a), "95")
	form.Set(fmt.Sprintf("grade_data[%d][posted_grade]", b), "95")
	form.Set(fmt.Sprintf("grade_data[%d][text_comment]", b), "nice")
	resp := s.do(t, http.MethodPost, "/api/v1/courses/101/assignments/7/submissions/update_grades", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	progress := decode[apiProgress](t, resp)
	assert.Equal(t, "submissions_update", progress.Tag)
	assert.Equal(t, "Course", progress.ContextType)
	assert.True(t, strings.HasSuffix(progress.URL, fmt.Sprintf("/api/v1/progress/%d", progress.ID)))

	resp = s.do(t, http.MethodGet, "/api/v1/courses/101/assignments/7/grades", "", nil)
	grades := decode[[]map[string]any](t, resp)
	require.Len(t, grades, 2)
	assert.Equal(t, "95", grades[0]["posted_grade"])

	resp = s.do(t, http.MethodGet, fmt.Sprintf("/api/v1/progress/%d", progress.ID), "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = s.do(t, http.MethodGet, "/api/v1/progress/999", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// non-students cannot be graded
	form = url.Values{}
	form.Set(fmt.Sprintf("grade_data[%d][posted_grade]", ta), "95")
	resp = s.do(t, http.MethodPost, "/api/v1/courses/101/assignments/7/submissions/update_grades", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	form = url.Values{}
	form.Set("grade_data[abc][posted_grade]", "95")
	resp = s.do(t, http.MethodPost, "/api/v1/courses/101/assignments/7/submissions/update_grades", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestParseGradeData(t *testing.T) {
	got, err := parseGradeData(map[string][]string{
		"grade_data[1][posted_grade]": {"95"},
		"grade_data[3][posted_grade]": {"80", "A"},
		"grade_data[3][excuse]":       {"true"},
		"unrelated":                   {"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{1: "95", 3: "A"}, got)

	for _, bad := range []string{"grade_data[1]", "grade_data[0][posted_grade]", "grade_data[][posted_grade]"} {
		_, err := parseGradeData(map[string][]string{bad: {"1"}})
		assert.Error(t, err, bad)
	}
}

func TestEnrollValidationAndUnenroll(t *testing.T) {
	s := setup(t)

	resp := s.do(t, http.MethodPost, "/api/v1/courses/101/enrollments", "application/json", strings.NewReader(`{"name":"x"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = s.do(t, http.MethodPost, "/api/v1/courses/101/enrollments", "application/json", strings.NewReader(`{"login_id":"a","role":"dean"}`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = s.do(t, http.MethodPost, "/api/v1/courses/101/enrollments", "application/json", strings.NewReader(`{`))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	id := s.enroll(t, "101", "abc", "student")
	resp = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/courses/101/enrollments/%d", id), "", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = s.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/courses/101/enrollments/%d", id), "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/api/v1/courses/101/users", "", nil)
	assert.Empty(t, decode[[]map[string]any](t, resp))
}
