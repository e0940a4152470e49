package testhttp

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// DoGet sends GET request to the url and decodes JSON response into "response".
func DoGet(t *testing.T, url string, response any) *http.Response {
	t.Helper()
	httpRes, err := http.Get(url) // #nosec G107
	require.NoError(t, err)
	decodeBody(t, httpRes, response)
	return httpRes
}

/*
DoPost sends "req" as JSON body to the url and decodes JSON response into "res".
When "req" is nil request without body is sent.
*/
func DoPost(t *testing.T, url string, req any, res any) *http.Response {
	t.Helper()
	var body io.Reader = http.NoBody
	if req != nil {
		b, err := json.Marshal(req)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	httpRes, err := http.Post(url, "application/json", body) // #nosec G107
	require.NoError(t, err)
	decodeBody(t, httpRes, res)
	return httpRes
}

func decodeBody(t *testing.T, httpRes *http.Response, v any) {
	t.Helper()
	defer func() { _ = httpRes.Body.Close() }()
	b, err := io.ReadAll(httpRes.Body)
	require.NoError(t, err)
	t.Logf("%s %s response %d: %s", httpRes.Request.Method, httpRes.Request.URL, httpRes.StatusCode, b)
	if v != nil {
		require.NoError(t, json.Unmarshal(b, v), "decoding response body")
	}
}
