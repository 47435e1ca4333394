package transport

import (
	"context"
	"net/url"

	"github.com/go-resty/resty/v2"
)

// RestySender is the default Sender implementation, built on resty the
// way keboola-as-code's src/http package wraps it. Applications may
// supply their own Sender instead -- the HTTP client implementation
// itself is an external collaborator per the SDK's scope.
//
// It deliberately carries no client-level timeout: CRUD and the
// long-polling probe share this one pooled client but need very
// different request budgets (defaultTimeoutMs vs longPollingTimeoutMs *
// 1.5), so each request's deadline is set solely through the context
// passed to Send -- a client-level SetTimeout would impose a single
// ceiling on both and cut the probe short.
type RestySender struct {
	client *resty.Client
}

// NewRestySender builds a RestySender with a shared, pooled resty client.
func NewRestySender() *RestySender {
	client := resty.New().
		SetHeader("Accept-Charset", "UTF-8")
	return &RestySender{client: client}
}

// Send issues method against rawURL with the given headers and,
// for writes, a form body. GET/DELETE requests instead expect the query
// string baked into rawURL by the caller.
func (s *RestySender) Send(ctx context.Context, method, rawURL string, headers map[string]string, form url.Values) (*Response, error) {
	req := s.client.R().SetContext(ctx)
	for k, v := range headers {
		req.SetHeader(k, v)
	}
	if len(form) > 0 {
		req.SetFormDataFromValues(form)
	}

	resp, err := req.Execute(method, rawURL)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Body:       resp.Body(),
	}, nil
}
