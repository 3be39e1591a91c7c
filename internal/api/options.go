package api

import (
	"net/url"

	"github.com/Astemirdum/library-loan-client/config"
)

type Credentials string

const (
	CredentialsInclude    Credentials = "include"
	CredentialsSameOrigin Credentials = "same-origin"
	CredentialsOmit       Credentials = "omit"
)

const (
	HeaderAccept        = "Accept"
	HeaderContentType   = "Content-Type"
	MIMEApplicationJSON = "application/json"
)

// Options is the per-request configuration. Zero fields mean "not set"
// so that a partial Options can be overlaid on a complete one.
type Options struct {
	BaseURL     string
	Method      string
	Credentials Credentials
	Headers     map[string]string
	Query       url.Values
	// Body is sent as is when it is a string, []byte or io.Reader,
	// anything else is encoded as JSON.
	Body any
}

// NewCommonOptions builds the option set shared by every API call:
// cookies are always included and the CSRF token is echoed in a header.
func NewCommonOptions(cfg config.API, csrf CSRFReader) Options {
	token := ""
	if csrf != nil {
		token = csrf.Token()
	}
	return Options{
		BaseURL:     cfg.BaseURL,
		Credentials: CredentialsInclude,
		Headers: map[string]string{
			HeaderAccept:      MIMEApplicationJSON,
			HeaderContentType: MIMEApplicationJSON,
			csrfHeader(cfg):   token,
		},
	}
}

// MergeOptions overlays custom on top of common. Headers are merged key by
// key with custom values winning; every other set field of custom replaces
// the common one. Neither argument is modified.
func MergeOptions(common, custom Options) Options {
	merged := common
	if custom.BaseURL != "" {
		merged.BaseURL = custom.BaseURL
	}
	if custom.Method != "" {
		merged.Method = custom.Method
	}
	if custom.Credentials != "" {
		merged.Credentials = custom.Credentials
	}
	if custom.Query != nil {
		merged.Query = custom.Query
	}
	if custom.Body != nil {
		merged.Body = custom.Body
	}

	merged.Headers = make(map[string]string, len(common.Headers)+len(custom.Headers))
	for k, v := range common.Headers {
		merged.Headers[k] = v
	}
	for k, v := range custom.Headers {
		merged.Headers[k] = v
	}
	return merged
}

func csrfHeader(cfg config.API) string {
	if cfg.CSRFHeaderName == "" {
		return DefaultCSRFHeader
	}
	return cfg.CSRFHeaderName
}
