package http

import (
	"bytes"
	"context"
	"io"
	nethttp "net/http"
)

// httpTransport sends requests through a net/http client
type httpTransport struct {
	client *nethttp.Client
}

// NewHTTPTransport returns a Transport backed by client, or by a fresh
// *http.Client when client is nil.
func NewHTTPTransport(client *nethttp.Client) Transport {
	if client == nil {
		client = &nethttp.Client{}
	}
	return &httpTransport{client: client}
}

// Send dispatches req and returns any received response regardless of its
// status. Per-attempt timeouts are applied from req.Timeout.
func (t *httpTransport) Send(ctx context.Context, req *Request) (*RawResponse, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := nethttp.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, NewValidationError("failed to create HTTP request: "+err.Error(), "url")
	}
	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, vs := range req.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		httpReq.URL.RawQuery = q.Encode()
	}
	httpReq.Header = req.Headers.Clone()
	if httpReq.Header == nil {
		httpReq.Header = make(nethttp.Header)
	}

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err, req.Timeout)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, NewTransportError("failed to read response body", networkCode(err), err)
	}

	return &RawResponse{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}
