// Package provider implements per-provider daily metric fetchers.
package provider

import (
	"errors"
	"net/http"
	"time"
)

// ErrAuthorizationRevoked indicates the provider rejected the credentials
// outright (HTTP 401). Distinct from transient failures so operators can
// tell a revoked grant from a flaky network.
var ErrAuthorizationRevoked = errors.New("provider authorization revoked")

const defaultRequestTimeout = 30 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultRequestTimeout}
}
