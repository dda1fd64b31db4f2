package server

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"storyline/internal/config"
	"storyline/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	cfg *config.Config
}

// newTestEnv builds a full application on an in-memory SQLite database.
func newTestEnv(t *testing.T, rdb *redis.Client, mutate ...func(*config.Config)) *testEnv {
	t.Helper()
	cfg := testutil.SQLiteConfig()
	cfg.StaticDir = t.TempDir()
	for _, m := range mutate {
		m(cfg)
	}

	db := testutil.NewTestDB(t)
	srv, err := NewServerWithDeps(cfg, db, rdb)
	require.NoError(t, err)
	app, err := srv.App()
	require.NoError(t, err)
	return &testEnv{srv: srv, app: app, db: db, cfg: cfg}
}

// browser keeps cookies between requests like a real client would.
type browser struct {
	t   *testing.T
	app *fiber.App
	jar map[string]*http.Cookie
}

func (e *testEnv) browser(t *testing.T) *browser {
	return &browser{t: t, app: e.app, jar: map[string]*http.Cookie{}}
}

type page struct {
	Status   int
	Location string
	Body     string
}

func (b *browser) do(req *http.Request) page {
	b.t.Helper()
	for _, ck := range b.jar {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	resp, err := b.app.Test(req, -1)
	require.NoError(b.t, err)
	defer func() { _ = resp.Body.Close() }()

	for _, ck := range resp.Cookies() {
		expired := ck.MaxAge < 0 || (!ck.Expires.IsZero() && ck.Expires.Before(time.Now()))
		if ck.Value == "" || expired {
			delete(b.jar, ck.Name)
			continue
		}
		b.jar[ck.Name] = ck
	}

	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return page{Status: resp.StatusCode, Location: resp.Header.Get("Location"), Body: string(body)}
}

func (b *browser) get(path string) page {
	b.t.Helper()
	return b.do(httptest.NewRequest(http.MethodGet, path, nil))
}

// visit follows redirects until a page is rendered.
func (b *browser) visit(path string) page {
	b.t.Helper()
	p := b.get(path)
	for i := 0; i < 5 && p.Status == http.StatusFound; i++ {
		p = b.get(p.Location)
	}
	return p
}

func (b *browser) post(path string, form url.Values) page {
	b.t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) postMultipart(path string, fields map[string]string, fileField, fileName string, content []byte) page {
	b.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(b.t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, fileName)
		require.NoError(b.t, err)
		_, err = fw.Write(content)
		require.NoError(b.t, err)
	}
	require.NoError(b.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return b.do(req)
}

func (b *browser) login(email, password string) page {
	b.t.Helper()
	p := b.post("/login", url.Values{"email": {email}, "password": {password}})
	require.Equal(b.t, http.StatusFound, p.Status, p.Body)
	return p
}

// idFromLocation returns the last numeric segment of a redirect target.
func idFromLocation(t *testing.T, location string) uint {
	t.Helper()
	parts := strings.Split(strings.Trim(location, "/"), "/")
	id, err := strconv.ParseUint(parts[len(parts)-1], 10, 64)
	require.NoError(t, err, location)
	return uint(id)
}
