package client

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	hc := &http.Client{}
	c, err := NewClient("https://lens.example.com",
		WithHTTPClient(hc),
		WithTimeout(42*time.Second),
		WithAPIKey("k"),
		WithRetryMax(0),
		WithRetryWait(time.Second, 2*time.Second),
		WithUserAgent("ua/1"))
	require.NoError(t, err)

	assert.Same(t, hc, c.httpClient)
	assert.Equal(t, 42*time.Second, hc.Timeout)
	assert.Equal(t, "k", c.apiKey)
	assert.Equal(t, 0, c.retryMax)
	assert.Equal(t, time.Second, c.retryWaitMin)
	assert.Equal(t, 2*time.Second, c.retryWaitMax)
	assert.Equal(t, "ua/1", c.userAgent)
}

func TestOptions_IgnoreInvalid(t *testing.T) {
	c, err := NewClient("http://x",
		WithHTTPClient(nil),
		WithTimeout(0),
		WithLogger(nil),
		WithRetryMax(-1),
		WithRetryWait(0, time.Second),
		WithUserAgent(""))
	require.NoError(t, err)

	assert.NotNil(t, c.httpClient)
	assert.Equal(t, 5*time.Minute, c.httpClient.Timeout)
	assert.NotNil(t, c.logger)
	assert.Equal(t, 3, c.retryMax)
	assert.Equal(t, 500*time.Millisecond, c.retryWaitMin)
	assert.Contains(t, c.userAgent, "contractlens-go-sdk/")
}

func TestWithAPIKey_SendsBearer(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		writeOK(w, http.StatusOK, []Category{})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithAPIKey("secret"))
	require.NoError(t, err)
	_, err = c.Categories(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", got)
}

//Personal.AI order the ending
