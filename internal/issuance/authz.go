package issuance

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Authorizer obtains write-permission delegation for the issuer before a
// credential record is persisted. An unauthorized write would be rejected
// downstream, so a failure here is fatal to issuance.
type Authorizer interface {
	AuthorizeWrite(ctx context.Context, issuerDID string) error
}

// HTTPAuthorizer calls the external authorization endpoint
// (GET {base}/authorize?issuerDid=...).
type HTTPAuthorizer struct {
	baseURL string
	client  *retryablehttp.Client
}

// NewHTTPAuthorizer builds an authorizer against the given base URL.
func NewHTTPAuthorizer(baseURL string) *HTTPAuthorizer {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.HTTPClient.Timeout = 15 * time.Second
	client.Logger = nil
	return &HTTPAuthorizer{baseURL: baseURL, client: client}
}

func (a *HTTPAuthorizer) AuthorizeWrite(ctx context.Context, issuerDID string) error {
	endpoint := fmt.Sprintf("%s/authorize?issuerDid=%s", a.baseURL, url.QueryEscape(issuerDID))
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build authorize request: %w", err)
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("authorize call failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("authorize endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

var _ Authorizer = (*HTTPAuthorizer)(nil)
