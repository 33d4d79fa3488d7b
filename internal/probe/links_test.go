package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/browser/browsertest"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

func TestResolveLink(t *testing.T) {
	base, _ := url.Parse("https://example.com/docs/index.html")
	tests := []struct {
		href string
		want string
	}{
		{"/about", "https://example.com/about"},
		{"guide.html#intro", "https://example.com/docs/guide.html"},
		{"https://other.org", "https://other.org/"},
		{"//cdn.example.net/x.js", "https://cdn.example.net/x.js"},
		{"  ../up  ", "https://example.com/up"},
		{"#top", ""},
		{"", ""},
		{"mailto:team@example.com", ""},
		{"JavaScript:void(0)", ""},
		{"tel:+123", ""},
		{"ftp://files.example.com/a", ""},
		{"data:text/plain,hi", ""},
	}
	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got := resolveLink(base, tt.href)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCollectLinks(t *testing.T) {
	doc := parseHTML(t, `<body>
<a href="/a">  First
   link </a>
<a href="/a#again">dup</a>
<a href="https://partner.io/x">partner</a>
<a href="mailto:x@example.com">mail</a>
<a href="#">top</a>
<a>no href</a>
</body>`)
	target := audit.MustParseTarget("https://example.com")

	links, skipped := CollectLinks(doc, target.URL(), target)

	require.Len(t, links, 2)
	assert.Equal(t, Link{URL: "https://example.com/a", Text: "First link", Internal: true}, links[0])
	assert.Equal(t, "https://partner.io/x", links[1].URL)
	assert.False(t, links[1].Internal)
	assert.Equal(t, 2, skipped)
}

func TestLinkChecker_Check(t *testing.T) {
	var heads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			heads.Add(1)
		}
		switch r.URL.Path {
		case "/ok":
			w.WriteHeader(http.StatusOK)
		case "/no-head":
			if r.Method == http.MethodHead {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			w.WriteHeader(http.StatusOK)
		case "/gone":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	checker := NewLinkChecker(srv.Client(), "seca-test", 2, 1000)
	results := checker.Check(context.Background(), []Link{
		{URL: srv.URL + "/ok"},
		{URL: srv.URL + "/no-head"},
		{URL: srv.URL + "/gone"},
		{URL: srv.URL + "/boom"},
	})

	require.Len(t, results, 4)
	assert.False(t, results[0].Broken())
	assert.False(t, results[1].Broken())
	assert.Equal(t, http.StatusOK, results[1].Status)
	assert.True(t, results[2].Broken())
	assert.Equal(t, http.StatusNotFound, results[2].Status)
	assert.Equal(t, http.StatusInternalServerError, results[3].Status)
	assert.Equal(t, int32(4), heads.Load())
}

func TestLinkChecker_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewLinkChecker(http.DefaultClient, "", 1, 1).Check(ctx, []Link{{URL: "http://127.0.0.1:1/"}})

	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.True(t, results[0].Broken())
}

func TestBacklinksProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	page := &browsertest.Page{
		NavResult: &browser.NavigationResult{URL: srv.URL + "/", Status: 200},
		Content: `<body>
<a href="/home">Home</a>
<a href="/missing">Missing page</a>
<a href="` + deadURL + `/x">Dead host</a>
<a href="mailto:a@b.c">Mail</a>
</body>`,
	}
	env, rec := testEnv(t, page)
	env.Target = audit.MustParseTarget(srv.URL)

	p := New(Config{LinkRateLimit: 1000}, zap.NewNop(), WithHTTPClient(srv.Client()))
	out := p.Backlinks(context.Background(), env)

	require.False(t, out.Failed(), out.Error)
	data := out.Data
	assert.Equal(t, 4, data.TotalLinks)
	assert.Equal(t, 3, data.Checked)
	assert.Equal(t, 1, data.Healthy)
	assert.Equal(t, 1, data.Skipped)
	// 127.0.0.1 with another port is still the first party.
	assert.Equal(t, 3, data.Internal)
	assert.Equal(t, 0, data.External)

	require.Len(t, data.Broken, 2)
	assert.Equal(t, srv.URL+"/missing", data.Broken[0].URL)
	assert.Equal(t, http.StatusNotFound, data.Broken[0].Status)
	assert.Empty(t, data.Broken[0].Error)
	assert.Equal(t, "Dead host", data.Broken[1].Text)
	assert.Zero(t, data.Broken[1].Status)
	assert.NotEmpty(t, data.Broken[1].Error)

	assert.Equal(t, 1, rec.links[true])
	assert.Equal(t, 2, rec.links[false])
}

func TestBacklinksProbe_CapsCheckedLinks(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	page := &browsertest.Page{Content: `<a href="/1">1</a><a href="/2">2</a><a href="/3">3</a>`}
	env, _ := testEnv(t, page)
	env.Target = audit.MustParseTarget(srv.URL)

	p := New(Config{MaxLinks: 2, LinkRateLimit: 1000}, zap.NewNop(), WithHTTPClient(srv.Client()))
	out := p.Backlinks(context.Background(), env)

	assert.Equal(t, 3, out.Data.TotalLinks)
	assert.Equal(t, 2, out.Data.Checked)
	assert.Equal(t, 1, out.Data.Skipped)
	assert.Equal(t, int32(2), hits.Load())
}
