package api

import "github.com/gin-gonic/gin"

// UserIDHeader is the header an upstream auth gateway is expected to set
// once a request has been authenticated. Authenticating the header's value
// itself is out of scope here; the API trusts whatever identity the gateway
// injected and does not check the value against anything.
const UserIDHeader = "X-User-ID"

// userID extracts the caller's identity injected by the auth gateway.
func userID(c *gin.Context) string {
	return c.GetHeader(UserIDHeader)
}
