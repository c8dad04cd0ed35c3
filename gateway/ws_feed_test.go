package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseBookTickerFrame(t *testing.T) {
	raw := []byte(`{"stream":"ethusdc@bookTicker","data":{"s":"ETHUSDC","b":"1999.50","B":"3.2","a":"2000.50","A":"1.8"}}`)
	book, trade, err := ParseStreamMessage(raw)
	require.NoError(t, err)
	require.Nil(t, trade)
	require.NotNil(t, book)
	require.Equal(t, "ETHUSDC", book.Symbol)
	require.Equal(t, 1999.50, book.BidPrice)
	require.Equal(t, 3.2, book.BidQty)
	require.Equal(t, 2000.50, book.AskPrice)
	require.Equal(t, 1.8, book.AskQty)
	require.True(t, book.Valid())
}

func TestParseTradeFrame(t *testing.T) {
	raw := []byte(`{"stream":"ethusdc@trade","data":{"s":"ETHUSDC","p":"2000.10","q":"0.5","m":true,"T":1700000000000}}`)
	book, trade, err := ParseStreamMessage(raw)
	require.NoError(t, err)
	require.Nil(t, book)
	require.NotNil(t, trade)
	require.Equal(t, 2000.10, trade.Price)
	require.Equal(t, 0.5, trade.Qty)
	// buyer is maker → 主动方是卖方
	require.Equal(t, "SELL", trade.Side)
	require.Equal(t, int64(1700000000000), trade.Ts.UnixMilli())
}

func TestParseUnknownStream(t *testing.T) {
	book, trade, err := ParseStreamMessage([]byte(`{"stream":"ethusdc@depth20","data":{}}`))
	require.NoError(t, err)
	require.Nil(t, book)
	require.Nil(t, trade)
}

func TestParseGarbage(t *testing.T) {
	_, _, err := ParseStreamMessage([]byte(`not json`))
	require.Error(t, err)
}

func TestSignParamsDeterministic(t *testing.T) {
	q1, s1 := SignParams(map[string]string{"symbol": "ETHUSDC", "side": "BUY"}, "secret")
	q2, s2 := SignParams(map[string]string{"side": "BUY", "symbol": "ETHUSDC"}, "secret")
	require.Equal(t, q1, q2)
	require.Equal(t, s1, s2)
	require.Len(t, s1, 64)
}
