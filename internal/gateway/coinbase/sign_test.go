package coinbase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("super-secret"))

func fixedSigner(t *testing.T) *signer {
	t.Helper()
	s, err := newSigner("api-key", testSecret, "pass")
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(1700000000, 500_000_000) }
	return s
}

func expectedSignature(timestamp, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte("super-secret"))
	mac.Write([]byte(timestamp + method + path))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestNewSignerRejectsBadSecret(t *testing.T) {
	_, err := newSigner("key", "not base64 !!!", "pass")
	assert.Error(t, err)
}

func TestTimestampFractionalSeconds(t *testing.T) {
	s := fixedSigner(t)
	assert.Equal(t, "1700000000.500", s.timestamp())
}

func TestSignSetsAllHeaders(t *testing.T) {
	s := fixedSigner(t)

	req, err := http.NewRequest(http.MethodPost, "https://example.test/orders", nil)
	require.NoError(t, err)

	body := []byte(`{"size":"1"}`)
	require.NoError(t, s.Sign(req, "/orders", body))

	assert.Equal(t, "api-key", req.Header.Get("CB-ACCESS-KEY"))
	assert.Equal(t, "pass", req.Header.Get("CB-ACCESS-PASSPHRASE"))
	assert.Equal(t, "1700000000.500", req.Header.Get("CB-ACCESS-TIMESTAMP"))
	assert.Equal(t,
		expectedSignature("1700000000.500", http.MethodPost, "/orders", body),
		req.Header.Get("CB-ACCESS-SIGN"))
}

func TestSignatureCoversQueryString(t *testing.T) {
	s := fixedSigner(t)

	a := s.signature("1700000000.500", http.MethodGet, "/orders", nil)
	b := s.signature("1700000000.500", http.MethodGet, "/orders?status=all", nil)
	assert.NotEqual(t, a, b)
}

func TestSignSubscribeMirrorsRestAuth(t *testing.T) {
	s := fixedSigner(t)

	packet := subscribePacket{
		Type:       "subscribe",
		ProductIDs: []string{"BTC-USD"},
		Channels:   []string{"user", "level2", "ticker"},
	}
	s.signSubscribe(&packet)

	assert.Equal(t, "api-key", packet.Key)
	assert.Equal(t, "pass", packet.Passphrase)
	assert.Equal(t, "1700000000.500", packet.Timestamp)
	assert.Equal(t,
		expectedSignature("1700000000.500", http.MethodGet, "/users/self/verify", nil),
		packet.Signature)
}
