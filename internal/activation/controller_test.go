package activation

import (
	"context"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"cdpmock/pkg/browser"
	"cdpmock/pkg/browser/browsertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// useFakeFactory 以内存页面工厂作为原生创建函数，测试结束后恢复
func useFakeFactory(t *testing.T) *browsertest.Factory {
	t.Helper()
	f := &browsertest.Factory{}
	prev := browser.SwapPageFactory(f.New)
	t.Cleanup(func() { browser.SwapPageFactory(prev) })
	return f
}

// countingWrap 记录经过包装函数创建的页面数
func countingWrap(wrapped *atomic.Int32, calls *atomic.Int32) WrapFunc {
	return func(orig browser.PageFactory) browser.PageFactory {
		calls.Add(1)
		return func(ctx context.Context, b *browser.Browser) (browser.Page, error) {
			wrapped.Add(1)
			return orig(ctx, b)
		}
	}
}

func newPage(t *testing.T) browser.Page {
	t.Helper()
	var b *browser.Browser
	p, err := b.NewPage(context.Background())
	require.NoError(t, err)
	return p
}

func TestInitialState(t *testing.T) {
	c := New(nil)
	assert.False(t, c.IsActive())
	assert.Empty(t, c.ActivationID())
}

func TestActivateDeactivateCycle(t *testing.T) {
	f := useFakeFactory(t)
	c := New(nil)
	var wrapped, calls atomic.Int32

	require.NoError(t, c.Activate(countingWrap(&wrapped, &calls)))
	assert.True(t, c.IsActive())
	assert.NotEmpty(t, c.ActivationID())

	newPage(t)
	assert.Equal(t, int32(1), wrapped.Load())

	require.NoError(t, c.Deactivate())
	assert.False(t, c.IsActive())
	assert.Empty(t, c.ActivationID())

	newPage(t)
	assert.Equal(t, int32(1), wrapped.Load(), "pages created after deactivate must use the native factory")
	assert.Len(t, f.Pages(), 2)

	require.NoError(t, c.Activate(countingWrap(&wrapped, &calls)))
	newPage(t)
	assert.Equal(t, int32(2), wrapped.Load())
	require.NoError(t, c.Deactivate())
	assert.Equal(t, int32(2), calls.Load())
}

func TestActivateTwiceFailsWithoutSideEffects(t *testing.T) {
	useFakeFactory(t)
	c := New(nil)
	var wrapped, calls atomic.Int32

	require.NoError(t, c.Activate(countingWrap(&wrapped, &calls)))
	id := c.ActivationID()

	err := c.Activate(countingWrap(&wrapped, &calls))
	require.ErrorIs(t, err, ErrAlreadyActive)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, id, c.ActivationID())
	assert.True(t, c.IsActive())

	newPage(t)
	assert.Equal(t, int32(1), wrapped.Load(), "a rejected activation must not wrap twice")

	require.NoError(t, c.Deactivate())
}

func TestDeactivateWhenInactive(t *testing.T) {
	useFakeFactory(t)
	c := New(nil)

	require.ErrorIs(t, c.Deactivate(), ErrNotActive)
	assert.False(t, c.IsActive())

	var wrapped, calls atomic.Int32
	require.NoError(t, c.Activate(countingWrap(&wrapped, &calls)))
	require.NoError(t, c.Deactivate())
	require.ErrorIs(t, c.Deactivate(), ErrNotActive)
}

func TestConcurrentActivateHasSingleWinner(t *testing.T) {
	useFakeFactory(t)
	c := New(nil)
	var wrapped, calls atomic.Int32

	const n = 16
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- c.Activate(countingWrap(&wrapped, &calls))
		}()
	}
	wg.Wait()
	close(errs)

	var ok, already int
	for err := range errs {
		switch err {
		case nil:
			ok++
		case ErrAlreadyActive:
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, already)
	assert.Equal(t, int32(1), calls.Load())

	newPage(t)
	assert.Equal(t, int32(1), wrapped.Load())
	require.NoError(t, c.Deactivate())
}

func TestActivateRollsBackWhenWrapPanics(t *testing.T) {
	useFakeFactory(t)
	before := browser.CurrentPageFactory()
	c := New(nil)

	assert.Panics(t, func() {
		_ = c.Activate(func(browser.PageFactory) browser.PageFactory { panic("wrap failed") })
	})
	assert.False(t, c.IsActive())
	assert.Empty(t, c.ActivationID())
	assert.Equal(t, reflect.ValueOf(before).Pointer(), reflect.ValueOf(browser.CurrentPageFactory()).Pointer())
	require.ErrorIs(t, c.Deactivate(), ErrNotActive)

	var wrapped, calls atomic.Int32
	require.NoError(t, c.Activate(countingWrap(&wrapped, &calls)))
	assert.True(t, c.IsActive())
	require.NoError(t, c.Deactivate())
}
