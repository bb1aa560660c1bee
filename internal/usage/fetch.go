package usage

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// usageEndpoint is a placeholder target for the default quota fetch. Real
// credential retrieval and endpoint selection for the quota API are
// explicitly collaborator scope (§1); callers that need a real backend
// should inject their own FetchFunc via NewWithOptions instead of relying
// on DefaultFetchFunc.
const usageEndpoint = "https://usage.invalid/v1/usage"

var errUsageDisabled = errors.New("usage fetcher disabled: no token configured")

func errNonOKStatus(code int) error {
	return fmt.Errorf("usage endpoint returned status %d", code)
}

func decodeJSON(resp *http.Response, v any) error {
	return json.NewDecoder(resp.Body).Decode(v)
}
