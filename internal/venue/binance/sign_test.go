package binance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSignQuery(t *testing.T) {
	auth := HMACAuth{Key: "testkey", Secret: "testsecret"}

	sig := auth.SignQuery("symbol=BTCUSDT&side=BUY&timestamp=1640995200000")
	assert.Equal(t, "c5edd7b30ab109c88742eee6906da1f1be3eef227eae0497730bdbf34846ce3d", sig)
}

func TestSignQueryDiffersPerSecret(t *testing.T) {
	query := "symbol=BTCUSDT&timestamp=1"
	a := HMACAuth{Secret: "one"}
	b := HMACAuth{Secret: "two"}
	assert.NotEqual(t, a.SignQuery(query), b.SignQuery(query))
}

func TestStringRedactsCredentials(t *testing.T) {
	auth := HMACAuth{Key: "abcdef123456", Secret: "supersecretvalue"}
	s := auth.String()
	assert.NotContains(t, s, "abcdef123456")
	assert.NotContains(t, s, "supersecretvalue")
	assert.Contains(t, s, "abcd****")
}
