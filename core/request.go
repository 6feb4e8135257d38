package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// RequestDecorator mutates the outgoing http.Request just before send, after
// signing. Providers use it for fixed headers like API version pins.
type RequestDecorator func(req *http.Request) error

// Request is a single provider API call carrying the parameters and the
// account whose credentials sign it. Requests are built by
// Service.CreateRequest and are not reusable across accounts.
type Request struct {
	Method  string
	URL     string
	Params  map[string]string
	Account *Account

	client       HTTPDoer
	signer       Signer
	urlSigner    URLSigner
	decorator    RequestDecorator
	maxBodyBytes int64
}

type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	return string(r.Body)
}

func (r *Response) DecodeJSON(out any) error {
	if r == nil || len(r.Body) == 0 {
		return fmt.Errorf("core: response body is empty")
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return ProtocolError("core: response is not valid json: %v", err)
	}
	return nil
}

// NewRequest builds an unsigned request. Most callers go through
// Service.CreateRequest instead, which wires the provider signer and client.
func NewRequest(method, rawURL string, params map[string]string, account *Account) *Request {
	return &Request{
		Method:  strings.ToUpper(strings.TrimSpace(method)),
		URL:     strings.TrimSpace(rawURL),
		Params:  copyStringMap(params),
		Account: account,
	}
}

func (r *Request) SetParam(key, value string) {
	if r == nil {
		return
	}
	if r.Params == nil {
		r.Params = map[string]string{}
	}
	r.Params[strings.TrimSpace(key)] = value
}

// queryMethod reports whether parameters travel in the URL instead of a
// form-encoded body.
func queryMethod(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case http.MethodGet, http.MethodHead, http.MethodDelete:
		return true
	default:
		return false
	}
}

// PreparedURL returns the fully prepared request URL: base URL plus
// query-encoded params for query methods, plus any URL signing. It is
// recomputed from the base URL on every call, so repeated preparation never
// stacks signing parameters.
func (r *Request) PreparedURL() (*url.URL, error) {
	if r == nil {
		return nil, fmt.Errorf("core: request is nil")
	}
	if strings.TrimSpace(r.URL) == "" {
		return nil, fmt.Errorf("core: request url is required")
	}
	parsed, err := url.Parse(r.URL)
	if err != nil {
		return nil, fmt.Errorf("core: invalid request url: %w", err)
	}

	if queryMethod(r.Method) && len(r.Params) > 0 {
		query := parsed.Query()
		for key, value := range r.Params {
			if strings.TrimSpace(key) == "" {
				continue
			}
			query.Set(key, value)
		}
		parsed.RawQuery = query.Encode()
	}

	if r.urlSigner != nil && r.Account != nil {
		if err := r.urlSigner.SignURL(parsed, *r.Account); err != nil {
			return nil, err
		}
	}
	return parsed, nil
}

// Execute sends the request. Transport failures come back as network errors;
// a non-2xx status returns both the Response and an *HTTPStatusError so the
// caller can inspect the body. No retries at this layer.
func (r *Request) Execute(ctx context.Context) (*Response, error) {
	if r == nil {
		return nil, fmt.Errorf("core: request is nil")
	}
	if strings.TrimSpace(r.Method) == "" {
		return nil, fmt.Errorf("core: request method is required")
	}

	prepared, err := r.PreparedURL()
	if err != nil {
		return nil, err
	}

	var body io.Reader
	contentType := ""
	if !queryMethod(r.Method) && len(r.Params) > 0 {
		form := url.Values{}
		for key, value := range r.Params {
			if strings.TrimSpace(key) == "" {
				continue
			}
			form.Set(key, value)
		}
		body = strings.NewReader(form.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.Method, prepared.String(), body)
	if err != nil {
		return nil, fmt.Errorf("core: building http request failed: %w", err)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if r.Account != nil {
		for _, cookie := range r.Account.Cookies {
			if cookie != nil {
				httpReq.AddCookie(cookie)
			}
		}
	}
	if r.signer != nil && r.Account != nil {
		if err := r.signer.Sign(ctx, httpReq, *r.Account); err != nil {
			return nil, err
		}
	}
	if r.decorator != nil {
		if err := r.decorator(httpReq); err != nil {
			return nil, err
		}
	}

	client := r.client
	if client == nil {
		client = http.DefaultClient
	}
	httpRes, err := client.Do(httpReq)
	if err != nil {
		return nil, NetworkError(err, "core: request transport failed")
	}
	defer httpRes.Body.Close()

	limit := r.maxBodyBytes
	if limit <= 0 {
		limit = 1 << 20
	}
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, limit))
	if err != nil {
		return nil, NetworkError(err, "core: reading response body failed")
	}

	response := &Response{
		StatusCode: httpRes.StatusCode,
		Headers:    httpRes.Header.Clone(),
		Body:       payload,
	}
	if httpRes.StatusCode < 200 || httpRes.StatusCode > 299 {
		return response, &HTTPStatusError{StatusCode: httpRes.StatusCode, Body: payload}
	}
	return response, nil
}
