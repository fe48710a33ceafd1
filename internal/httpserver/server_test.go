package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/polyglot_blog/internal/repo"
	"github.com/Skotchmaster/polyglot_blog/internal/service"
	"github.com/Skotchmaster/polyglot_blog/internal/storage"
	"github.com/Skotchmaster/polyglot_blog/internal/testutil"
)

const (
	testAdmin    = "root"
	testPassword = "Secret123"
)

type testServer struct {
	e    *echo.Echo
	auth *service.AuthService
	repo *repo.GormRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	r := repo.New(testutil.NewDB(t))
	auth := &service.AuthService{
		Repo:          r,
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    7 * 24 * time.Hour,
	}
	_, err := auth.EnsureAdmin(context.Background(), testAdmin, testPassword)
	require.NoError(t, err)

	store, err := storage.NewDiskStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	e := echo.New()
	Register(e, &Deps{
		AuthHandler:       &AuthHTTP{Svc: auth},
		BlogHandler:       &BlogHTTP{Svc: &service.BlogService{Repo: r, DefaultLang: "en"}},
		CategoryHandler:   &CategoryHTTP{Svc: &service.CategoryService{Repo: r, DefaultLang: "en"}},
		CommentHandler:    &CommentHTTP{Svc: &service.CommentService{Repo: r}},
		SubscriberHandler: &SubscriberHTTP{Svc: &service.SubscriberService{Repo: r, DefaultLang: "en"}},
		UploadHandler:     &UploadHTTP{Svc: &service.UploadService{Store: store, MaxBytes: 1 << 20}},
	})
	return &testServer{e: e, auth: auth, repo: r}
}

type call struct {
	method  string
	path    string
	body    any
	bearer  string
	cookies []*http.Cookie
	header  http.Header
	raw     io.Reader
}

func (s *testServer) do(t *testing.T, c call) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader = c.raw
	if c.body != nil {
		b, err := json.Marshal(c.body)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	if c.body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if c.bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+c.bearer)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// login returns the access token and the refresh cookie.
func (s *testServer) login(t *testing.T) (string, *http.Cookie) {
	t.Helper()

	rec := s.do(t, call{method: http.MethodPost, path: "/api/admin/login", body: map[string]string{"username": testAdmin, "password": testPassword}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		AccessToken string `json:"accessToken"`
	}
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.AccessToken)
	return resp.AccessToken, refreshCookie(t, rec)
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == RefreshCookieName {
			return c
		}
	}
	t.Fatalf("no %s cookie in response", RefreshCookieName)
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func multipartImage(t *testing.T, field string, data []byte) (io.Reader, http.Header) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, "picture.png")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, http.Header{echo.HeaderContentType: []string{w.FormDataContentType()}}
}
