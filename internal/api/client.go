package api

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/Astemirdum/library-loan-client/config"
	"github.com/Astemirdum/library-loan-client/internal/errs"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
)

//go:generate mockgen -destination=mocks/fetcher.go -package=api_mocks . Fetcher

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Fetcher issues one API round trip and decodes the JSON answer into out.
type Fetcher interface {
	Do(ctx context.Context, path string, opts Options, out any) error
}

type Client struct {
	log     *zap.Logger
	cfg     config.API
	baseURL *url.URL
	csrf    CSRFReader
	client  *http.Client
	anon    *http.Client
}

func NewClient(log *zap.Logger, cfg config.API) (*Client, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse api base url")
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, errors.Errorf("api base url %q is not absolute", cfg.BaseURL)
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "cookie jar")
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = time.Minute
	}
	return &Client{
		log:     log.Named("api"),
		cfg:     cfg,
		baseURL: baseURL,
		csrf:    NewCookieCSRFReader(jar, cfg.BaseURL, cfg.CSRFCookieName),
		client:  &http.Client{Timeout: timeout, Jar: jar},
		anon:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) CSRF() CSRFReader {
	return c.csrf
}

// CommonOptions is rebuilt on every call so a rotated CSRF cookie is picked up.
func (c *Client) CommonOptions() Options {
	return NewCommonOptions(c.cfg, c.csrf)
}

func (c *Client) Do(ctx context.Context, path string, custom Options, out any) error {
	opts := MergeOptions(c.CommonOptions(), custom)
	method := strings.ToUpper(opts.Method)
	if method == "" {
		method = http.MethodGet
	}

	target, err := resolveURL(opts.BaseURL, path)
	if err != nil {
		return err
	}
	if len(opts.Query) > 0 {
		q := target.Query()
		for k, vs := range opts.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		target.RawQuery = q.Encode()
	}

	body, err := encodeBody(opts.Body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient(opts.Credentials, target).Do(req)
	if err != nil {
		c.log.Debug("api request failed",
			zap.String("method", method),
			zap.String("url", target.String()),
			zap.Error(err))
		return errors.Wrapf(err, "%s %s", method, target.Path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	c.log.Debug("api request",
		zap.String("method", method),
		zap.String("url", target.String()),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)))

	if resp.StatusCode >= http.StatusBadRequest {
		return &errs.HTTPError{
			StatusCode: resp.StatusCode,
			Message:    extractMessage(data),
			Body:       data,
		}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "decode %s %s", method, target.Path)
	}
	return nil
}

// Fetch is the typed form of Fetcher.Do.
func Fetch[T any](ctx context.Context, f Fetcher, path string, opts Options) (T, error) {
	var v T
	err := f.Do(ctx, path, opts, &v)
	return v, err
}

func (c *Client) httpClient(mode Credentials, target *url.URL) *http.Client {
	switch mode {
	case CredentialsOmit:
		return c.anon
	case CredentialsSameOrigin:
		if target.Scheme != c.baseURL.Scheme || target.Host != c.baseURL.Host {
			return c.anon
		}
	}
	return c.client
}

func resolveURL(base, path string) (*url.URL, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		u, err := url.Parse(path)
		return u, errors.Wrap(err, "parse url")
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse url")
	}
	return u, nil
}

func encodeBody(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return http.NoBody, nil
	case io.Reader:
		return b, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return strings.NewReader(b), nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "encode body")
	}
	return bytes.NewReader(data), nil
}

// extractMessage pulls a human readable message out of an error payload.
// DRF answers with "detail", the loan and auth views with "error".
func extractMessage(data []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"message", "error", "detail"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	fields, ok := payload["errors"].(map[string]any)
	if !ok || len(fields) == 0 {
		return ""
	}
	msgs := make([]string, 0, len(fields))
	for field, v := range fields {
		if s, ok := v.(string); ok {
			msgs = append(msgs, field+": "+s)
		}
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
