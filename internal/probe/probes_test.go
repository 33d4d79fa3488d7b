package probe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/browser/browsertest"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{Concurrency: -1, MaxLinks: 10}.withDefaults()

	assert.Equal(t, DefaultConfig().UserAgent, cfg.UserAgent)
	assert.Equal(t, DefaultConfig().Concurrency, cfg.Concurrency)
	assert.Equal(t, 10, cfg.MaxLinks)
	assert.Greater(t, cfg.LinkRateLimit, 0.0)
}

func TestLoad_IdleTimeoutIsTolerated(t *testing.T) {
	page := &browsertest.Page{IdleErr: sharedErrors.ErrNetworkIdleTimeout, Content: "<html><h1>x</h1></html>"}
	env, _ := testEnv(t, page)

	doc, nav, err := New(Config{}, zap.NewNop()).loadDocument(context.Background(), env, page)

	require.NoError(t, err)
	assert.Equal(t, 200, nav.Status)
	assert.Equal(t, 1, doc.Find("h1").Length())
}

type interactionCounter struct {
	mu         sync.Mutex
	ok, failed int
}

func (c *interactionCounter) RecordInteraction(_ audit.ElementKind, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.ok++
	} else {
		c.failed++
	}
}

func TestInteractionsProbe(t *testing.T) {
	page := &browsertest.Page{
		Buttons:  []browser.ElementInfo{{Index: 0, Text: "Buy"}, {Index: 1, Text: "Cart"}, {Index: 2, Text: "Help"}},
		Inputs:   []browser.ElementInfo{{Index: 0, Name: "q"}},
		ClickErr: map[int]error{1: errors.New("detached")},
	}
	env, _ := testEnv(t, page)
	closed := httptest.NewServer(http.NotFoundHandler())
	closed.Close()
	env.Target = audit.MustParseTarget(closed.URL)
	counter := &interactionCounter{}

	p := New(Config{Concurrency: 2, HTTPTimeout: time.Second}, zap.NewNop(), WithInteractionRecorder(counter))
	out := p.Interactions(context.Background(), env)

	require.False(t, out.Failed(), out.Error)
	require.Len(t, out.Data.Buttons, 3)
	require.Len(t, out.Data.Inputs, 1)
	assert.False(t, out.Data.Buttons[1].Succeeded)
	assert.Equal(t, []int{2, 1}, out.Data.Batches.ButtonBatches)
	assert.Equal(t, audit.FallbackInteractions().CORSProbe, out.Data.CORSProbe)
	assert.Equal(t, 3, counter.ok)
	assert.Equal(t, 1, counter.failed)
	assert.True(t, page.Closed())
}

func TestInteractionsProbe_NavigationFailure(t *testing.T) {
	page := &browsertest.Page{NavigateErr: errors.New("net::ERR_CONNECTION_RESET")}
	env, _ := testEnv(t, page)

	out := New(Config{}, zap.NewNop()).Interactions(context.Background(), env)

	assert.True(t, out.Failed())
	assert.Equal(t, audit.FallbackInteractions(), out.Data)
}

func TestThirdPartyProbe(t *testing.T) {
	page := &browsertest.Page{Requests: []browser.RequestEvent{
		{URL: "https://example.com/app.js", Method: "GET", ResourceType: "Script"},
		{URL: "https://www.google-analytics.com/collect", Method: "POST", ResourceType: "XHR"},
		{URL: "https://connect.facebook.net/sdk.js", Method: "GET", ResourceType: "Script"},
	}}
	env, _ := testEnv(t, page)

	out := New(Config{}, zap.NewNop()).ThirdParty(context.Background(), env)

	require.False(t, out.Failed())
	assert.Equal(t, 2, out.Data.TotalThirdPartyHosts)
	assert.Equal(t, 1, out.Data.CategorySummary[audit.CategoryAnalytics])
	assert.Equal(t, 1, out.Data.CategorySummary[audit.CategorySocial])
	assert.NotContains(t, out.Data.Details, "example.com")
}

func TestThirdPartyProbe_NavigationFailureIsNotAProbeFailure(t *testing.T) {
	page := &browsertest.Page{NavigateErr: errors.New("net::ERR_NAME_NOT_RESOLVED")}
	env, _ := testEnv(t, page)

	out := New(Config{}, zap.NewNop()).ThirdParty(context.Background(), env)

	assert.False(t, out.Failed())
	assert.Equal(t, 0, out.Data.TotalThirdPartyHosts)
	assert.Empty(t, out.Data.Details)
}
