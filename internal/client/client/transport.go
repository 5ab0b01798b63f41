package client

import (
	"context"
	"io"
	"net/http"

	"github.com/dmitrijs2005/gophnotes/internal/common"
)

type noAuthKey struct{}

// withoutAuth marks requests that must not carry a bearer token nor
// trigger a refresh: the session endpoints and the health check.
func withoutAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, noAuthKey{}, true)
}

func skipAuth(ctx context.Context) bool {
	v, _ := ctx.Value(noAuthKey{}).(bool)
	return v
}

// authTransport attaches the access token and, on a 401, refreshes it
// and retries the request once.
type authTransport struct {
	base   http.RoundTripper
	client *HTTPClient
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if skipAuth(req.Context()) {
		return t.base.RoundTrip(req)
	}

	resp, err := t.base.RoundTrip(withBearer(req, t.client.session.AccessToken()))
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if req.Body != nil && req.GetBody == nil {
		// body already consumed and cannot be replayed
		return resp, nil
	}

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	token, err := t.client.Refresh(req.Context())
	if err != nil {
		return nil, err
	}

	retry := withBearer(req, token)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return t.base.RoundTrip(retry)
}

func withBearer(req *http.Request, token string) *http.Request {
	r := req.Clone(req.Context())
	if token != "" {
		r.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return r
}
