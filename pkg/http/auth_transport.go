package http

import "net/http"

type authTransport struct {
	header    string
	value     string
	transport http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	reqCopy := req.Clone(req.Context())
	reqCopy.Header.Set(t.header, t.value)

	return t.transport.RoundTrip(reqCopy)
}

// WithAuthToken sets a bearer Authorization header. An empty token leaves requests untouched.
func WithAuthToken(token string) HttpOpts {
	return WithAuthHeader("Authorization", "Bearer "+token, token != "")
}

// WithAuthHeader sets header to value on every request when enabled
func WithAuthHeader(header, value string, enabled bool) HttpOpts {
	if !enabled {
		return func(*httpConfig) {}
	}

	return WithTransport(func(rt http.RoundTripper) http.RoundTripper {
		return &authTransport{
			header:    header,
			value:     value,
			transport: rt,
		}
	})
}
