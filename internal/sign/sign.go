// Package sign implements the request signature the remote config service
// expects on authenticated namespaces. The algorithm is a wire contract:
// base64(HMAC-SHA1(secret, "<timestamp-millis>\n<path?query>")), so the
// output must be reproducible bit-for-bit.
package sign

import (
	"confetch/internal/types"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
)

// Sign computes the signature for one outgoing request. requestTarget may be
// a full URL (scheme and host are stripped) or a bare path with optional
// query, which is used as-is. Fragments never participate.
func Sign(timestampMillis int64, requestTarget, secret string) (string, error) {
	u, err := url.Parse(requestTarget)
	if err != nil {
		return "", types.Err(types.ErrSignature, err, "cannot parse request target %q", requestTarget)
	}
	pathAndQuery := u.Path
	if u.RawQuery != "" {
		pathAndQuery += "?" + u.RawQuery
	}

	mac := hmac.New(sha1.New, []byte(secret))
	fmt.Fprintf(mac, "%d\n%s", timestampMillis, pathAndQuery)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}
