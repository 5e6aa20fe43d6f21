package browser

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func funcPtr(f PageFactory) uintptr { return reflect.ValueOf(f).Pointer() }

func TestDefaultPageFactoryIsOpenPage(t *testing.T) {
	assert.Equal(t, funcPtr(OpenPage), funcPtr(CurrentPageFactory()))
}

func TestSwapPageFactoryRoutesNewPage(t *testing.T) {
	errSentinel := errors.New("stub factory")
	var calls int
	stub := func(context.Context, *Browser) (Page, error) {
		calls++
		return nil, errSentinel
	}

	prev := SwapPageFactory(stub)
	t.Cleanup(func() { SwapPageFactory(prev) })
	assert.Equal(t, funcPtr(OpenPage), funcPtr(prev))

	var b *Browser
	_, err := b.NewPage(context.Background())
	require.ErrorIs(t, err, errSentinel)
	assert.Equal(t, 1, calls)

	restored := SwapPageFactory(prev)
	assert.Equal(t, funcPtr(stub), funcPtr(restored))
	assert.Equal(t, funcPtr(OpenPage), funcPtr(CurrentPageFactory()))
}

func TestOpenPageRequiresBrowser(t *testing.T) {
	_, err := OpenPage(context.Background(), nil)
	require.Error(t, err)
}

func TestTitleAndBodyText(t *testing.T) {
	html := `<html><head><title> Mocked Domain </title></head><body><p>{"status": "success"}</p></body></html>`
	title, err := Title(html)
	require.NoError(t, err)
	assert.Equal(t, "Mocked Domain", title)

	body, err := BodyText(html)
	require.NoError(t, err)
	assert.Equal(t, `{"status": "success"}`, body)
}
