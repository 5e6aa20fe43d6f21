package traffic

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderPreservesCaseAndOrder(t *testing.T) {
	var h Header
	h.Add("x-Lower-Mixed", "1")
	h.Add("Accept", "text/html")
	h.Add("x-lower-mixed", "2")

	assert.Equal(t, "1", h.Get("X-LOWER-MIXED"))
	assert.Equal(t, []string{"1", "2"}, h.Values("x-lower-mixed"))
	assert.Equal(t, "", h.Get("missing"))

	hh := h.HTTP()
	require.Len(t, hh, 3)
	assert.Equal(t, []string{"1"}, hh["x-Lower-Mixed"])
	assert.Equal(t, []string{"2"}, hh["x-lower-mixed"])
	assert.Empty(t, hh.Values("X-Lower-Mixed"), "keys must not be canonicalized")
}

func TestFromHTTPSortsKeysAndSplitsValues(t *testing.T) {
	src := http.Header{
		"Set-Cookie":   {"a=1", "b=2"},
		"Content-Type": {"application/json"},
	}
	h := FromHTTP(src)
	assert.Equal(t, Header{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "Set-Cookie", Value: "a=1"},
		{Name: "Set-Cookie", Value: "b=2"},
	}, h)
}

func TestCloneIsIndependent(t *testing.T) {
	h := Header{{Name: "A", Value: "1"}}
	c := h.Clone()
	c[0].Value = "2"
	assert.Equal(t, "1", h[0].Value)
	assert.Nil(t, Header(nil).Clone())
}

func TestNewResponseDefaults(t *testing.T) {
	res := NewResponse()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotNil(t, res.Headers)

	req := NewRequest()
	assert.Equal(t, http.MethodGet, req.Method)
	assert.False(t, req.HasBody)
}
