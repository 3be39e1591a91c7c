package api_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/Astemirdum/library-loan-client/config"
	"github.com/Astemirdum/library-loan-client/internal/api"
	"github.com/stretchr/testify/require"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestNewCommonOptions(t *testing.T) {
	t.Parallel()
	cfg := config.API{BaseURL: "http://localhost:8000"}

	opts := api.NewCommonOptions(cfg, staticToken("abc"))
	require.Equal(t, "http://localhost:8000", opts.BaseURL)
	require.Equal(t, api.CredentialsInclude, opts.Credentials)
	require.Equal(t, map[string]string{
		"Accept":       "application/json",
		"Content-Type": "application/json",
		"X-CSRFToken":  "abc",
	}, opts.Headers)

	noCSRF := api.NewCommonOptions(cfg, nil)
	require.Equal(t, "", noCSRF.Headers["X-CSRFToken"])
}

func TestMergeOptions(t *testing.T) {
	t.Parallel()
	common := api.NewCommonOptions(config.API{BaseURL: "http://localhost:8000"}, staticToken("base-token"))

	tests := []struct {
		name   string
		custom api.Options
		check  func(t *testing.T, merged api.Options)
	}{
		{
			name:   "empty custom keeps common",
			custom: api.Options{},
			check: func(t *testing.T, merged api.Options) {
				require.Equal(t, common, merged)
			},
		},
		{
			name:   "custom header wins, others kept",
			custom: api.Options{Headers: map[string]string{"X-CSRFToken": "override"}},
			check: func(t *testing.T, merged api.Options) {
				require.Equal(t, "override", merged.Headers["X-CSRFToken"])
				require.Equal(t, "application/json", merged.Headers["Accept"])
				require.Equal(t, "application/json", merged.Headers["Content-Type"])
				require.Len(t, merged.Headers, 3)
			},
		},
		{
			name: "scalar fields overlay",
			custom: api.Options{
				Method:      http.MethodPost,
				Credentials: api.CredentialsOmit,
				Body:        map[string]int{"book_id": 1},
				Query:       url.Values{"q": {"go"}},
			},
			check: func(t *testing.T, merged api.Options) {
				require.Equal(t, http.MethodPost, merged.Method)
				require.Equal(t, api.CredentialsOmit, merged.Credentials)
				require.Equal(t, "http://localhost:8000", merged.BaseURL)
				require.Equal(t, map[string]int{"book_id": 1}, merged.Body)
				require.Equal(t, "go", merged.Query.Get("q"))
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.check(t, api.MergeOptions(common, tt.custom))
		})
	}
}

func TestMergeOptions_DoesNotMutate(t *testing.T) {
	t.Parallel()
	common := api.Options{Headers: map[string]string{"Accept": "application/json"}}
	custom := api.Options{Headers: map[string]string{"X-Extra": "1"}}

	merged := api.MergeOptions(common, custom)
	merged.Headers["Accept"] = "text/plain"

	require.Equal(t, map[string]string{"Accept": "application/json"}, common.Headers)
	require.Equal(t, map[string]string{"X-Extra": "1"}, custom.Headers)
}
