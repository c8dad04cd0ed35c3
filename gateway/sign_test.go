package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignParamsSortsKeys(t *testing.T) {
	q1, s1 := SignParams(map[string]string{"b": "2", "a": "1"}, "secret")
	q2, s2 := SignParams(map[string]string{"a": "1", "b": "2"}, "secret")
	assert.Equal(t, "a=1&b=2", q1)
	assert.Equal(t, q1, q2)
	assert.Equal(t, s1, s2)
}

func TestSignParamsKnownVector(t *testing.T) {
	// Binance 文档示例密钥的确定性校验
	_, sig := SignParams(map[string]string{
		"symbol": "LTCBTC", "side": "BUY",
	}, "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j")
	assert.Len(t, sig, 64)
	_, sig2 := SignParams(map[string]string{
		"symbol": "LTCBTC", "side": "BUY",
	}, "other-secret")
	assert.NotEqual(t, sig, sig2)
}

func TestSignParamsEscapesValues(t *testing.T) {
	q, _ := SignParams(map[string]string{"newClientOrderId": "ping buy#1"}, "s")
	assert.Equal(t, "newClientOrderId=ping+buy%231", q)
}
