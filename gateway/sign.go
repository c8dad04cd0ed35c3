package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
)

// SignParams 将参数编码为排序后的 query string 并附上 HMAC-SHA256 签名。
func SignParams(params map[string]string, secret string) (query, signature string) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	query = values.Encode()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(query))
	return query, hex.EncodeToString(mac.Sum(nil))
}
