package githubapi

import (
	"net/http"
)

const (
	authorizationHeaderConstant      = "Authorization"
	authorizationValuePrefixConstant = "token "
)

type tokenTransport struct {
	token     string
	transport http.RoundTripper
}

func (transport *tokenTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	authorizedRequest := request.Clone(request.Context())
	authorizedRequest.Header.Set(authorizationHeaderConstant, authorizationValuePrefixConstant+transport.token)
	return transport.transport.RoundTrip(authorizedRequest)
}

func newAuthorizedHTTPClient(token string, baseTransport http.RoundTripper) *http.Client {
	if baseTransport == nil {
		baseTransport = http.DefaultTransport
	}
	return &http.Client{Transport: &tokenTransport{token: token, transport: baseTransport}}
}
