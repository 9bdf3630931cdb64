package client

import (
	"context"
	"net/http"

	"github.com/ValentinKolb/dCrate/rpc/common"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
)

// isRetryable decides whether a failed attempt may be repeated on another
// node. HTTP outcomes are classified by retryablehttp's default policy:
// connection failures, timeouts and 429 are retryable, TLS and redirect
// errors as well as other statuses are not. Every 5xx status is retryable. A done caller
// context is never retried.
func isRetryable(ctx context.Context, err error) bool {
	if err == nil || ctx.Err() != nil {
		return false
	}

	if errors.Is(err, common.ErrMalformedResponse) {
		return true
	}

	var se *common.StatusError
	if errors.As(err, &se) {
		// the policy gives up on 501, every server error fails over here
		if se.StatusCode >= http.StatusInternalServerError {
			return true
		}
		retry, _ := retryablehttp.DefaultRetryPolicy(ctx, &http.Response{StatusCode: se.StatusCode}, nil)
		return retry
	}

	var te *common.TransportError
	if errors.As(err, &te) {
		// the policy type-asserts *url.Error, so pass it unwrapped
		retry, _ := retryablehttp.DefaultRetryPolicy(ctx, nil, te.Err)
		return retry
	}

	return false
}
