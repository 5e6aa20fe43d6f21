package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cdpmock/internal/session"
	"cdpmock/pkg/browser"
	"cdpmock/pkg/browser/browsertest"
	"cdpmock/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapPageFactoryBridgesNewPages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "relayed "+r.URL.Path)
	}))
	defer srv.Close()

	f := newFixture(t, Config{})
	orig := &browsertest.Factory{}
	pages := session.NewManager(nil, f.metrics)
	wrapped := WrapPageFactory(orig.New, f.bridge, pages)

	p, err := wrapped(context.Background(), nil)
	require.NoError(t, err)

	fake := orig.Pages()[0]
	assert.Same(t, fake, p)
	assert.True(t, fake.Intercepting())
	assert.True(t, fake.HasHandler())
	assert.Equal(t, []model.TargetID{"page-1"}, pages.List())

	evt := f.nextEvent(t)
	assert.Equal(t, model.EventPageBridged, evt.Type)
	assert.Equal(t, model.TargetID("page-1"), evt.Target)

	req := browsertest.NewRequest("GET", srv.URL+"/index.html")
	require.NoError(t, fake.Emit(context.Background(), req))
	require.NotNil(t, req.Response())
	assert.Equal(t, "relayed /index.html", string(req.Response().Body))
}

func TestWrapPageFactoryPropagatesCreateError(t *testing.T) {
	f := newFixture(t, Config{})
	boom := errors.New("target crashed")
	orig := &browsertest.Factory{Err: boom}

	p, err := WrapPageFactory(orig.New, f.bridge, nil)(context.Background(), nil)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, p)
}

func TestWrapPageFactoryClosesPageWhenInterceptionFails(t *testing.T) {
	f := newFixture(t, Config{})
	fake := browsertest.NewPage("p1")
	fake.InterceptErr = errors.New("fetch domain unavailable")
	orig := func(context.Context, *browser.Browser) (browser.Page, error) { return fake, nil }
	pages := session.NewManager(nil, nil)

	p, err := WrapPageFactory(orig, f.bridge, pages)(context.Background(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, fake.InterceptErr)
	assert.Nil(t, p)
	assert.True(t, fake.Closed())
	assert.Empty(t, pages.List())
}

func TestWrapPageFactoryRejectsSecondHandler(t *testing.T) {
	f := newFixture(t, Config{})
	fake := browsertest.NewPage("p1")
	require.NoError(t, fake.OnRequest(func(context.Context, browser.Request) {}))
	orig := func(context.Context, *browser.Browser) (browser.Page, error) { return fake, nil }

	_, err := WrapPageFactory(orig, f.bridge, nil)(context.Background(), nil)
	require.ErrorIs(t, err, browser.ErrHandlerRegistered)
	assert.True(t, fake.Closed())
	assert.False(t, fake.Intercepting())
}
