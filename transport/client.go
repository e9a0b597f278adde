package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 1 << 20 // 1 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// restClient is the shared request plumbing for the identity and scalar
// clients: JSON in/out, bounded response bodies, typed failures.
type restClient struct {
	client               HTTPDoer
	service              string
	maxResponseBodyBytes int64
}

func newRESTClient(client HTTPDoer, service string) restClient {
	if client == nil {
		client = &http.Client{Timeout: defaultClientTimeout}
	}
	return restClient{
		client:               client,
		service:              service,
		maxResponseBodyBytes: defaultResponseBodyLimit,
	}
}

type restRequest struct {
	Method  string
	URL     string
	Query   map[string]string
	Headers map[string]string
	Body    any
	// plain 403 means invalid token for this endpoint's service
	TokenSpecific403 bool
}

func (c restClient) doJSON(ctx context.Context, req restRequest, out any) error {
	if c.client == nil {
		return transportError(
			"transport: "+c.service+" client requires an http transport",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			map[string]any{"service": c.service},
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	parsedURL, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || parsedURL.String() == "" || parsedURL.Host == "" {
		return transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"service": c.service, "url": strings.TrimSpace(req.URL)},
		)
	}
	query := parsedURL.Query()
	for key, value := range req.Query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		query.Set(strings.TrimSpace(key), value)
	}
	parsedURL.RawQuery = query.Encode()

	var bodyReader io.Reader
	if req.Body != nil {
		encoded, encodeErr := json.Marshal(req.Body)
		if encodeErr != nil {
			return transportWrapError(
				encodeErr,
				goerrors.CategoryBadInput,
				"transport: encode request body",
				http.StatusBadRequest,
				map[string]any{"service": c.service},
			)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, parsedURL.String(), bodyReader)
	if err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: create http request",
			http.StatusBadRequest,
			map[string]any{"service": c.service, "method": method},
		)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), value)
	}

	httpRes, err := c.client.Do(httpReq)
	if err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: execute http request",
			http.StatusBadGateway,
			map[string]any{"service": c.service, "method": method, "url": parsedURL.String()},
		)
	}
	defer httpRes.Body.Close()

	limit := c.maxResponseBodyBytes
	if limit <= 0 {
		limit = defaultResponseBodyLimit
	}
	body, err := io.ReadAll(io.LimitReader(httpRes.Body, limit))
	if err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: read response body",
			http.StatusBadGateway,
			map[string]any{"service": c.service, "status_code": httpRes.StatusCode},
		)
	}

	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return classifyStatus(c.service, httpRes.StatusCode, body, req.TokenSpecific403)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return transportWrapError(
			err,
			goerrors.CategoryExternal,
			"transport: decode response body",
			http.StatusBadGateway,
			map[string]any{"service": c.service, "status_code": httpRes.StatusCode},
		)
	}
	return nil
}

func joinURL(baseURL string, segments ...string) string {
	out := strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	for _, segment := range segments {
		out += "/" + strings.Trim(segment, "/")
	}
	return out
}
