package mime

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mikey/mail-gatekeeper/internal/utils"
)

func newTestNormalizer(maxBodySize int) *Normalizer {
	logger := zap.NewNop()
	return NewNormalizer(maxBodySize, utils.NewTextProcessor(logger), logger)
}

func TestNormalizePlainText(t *testing.T) {
	raw := strings.Join([]string{
		"From: Alice Smith <Alice@Example.com>",
		"To: mikey@example.com",
		"Subject: catching up",
		"List-Unsubscribe: <mailto:leave@example.com>",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"Hey, it has been a while. How are you?",
		"",
	}, "\r\n")

	msg, err := newTestNormalizer(1000).Normalize([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", msg.Sender)
	assert.Equal(t, "catching up", msg.Subject)
	assert.Equal(t, "Hey, it has been a while. How are you?", msg.Body)
	assert.Equal(t, "<mailto:leave@example.com>", msg.Header("List-Unsubscribe"))
	assert.Equal(t, "<mailto:leave@example.com>", msg.Header("list-unsubscribe"))
}

func TestNormalizeMultipartPrefersText(t *testing.T) {
	raw := strings.Join([]string{
		"From: bob@example.com",
		"Subject: newsletter",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="BOUNDARY"`,
		"",
		"--BOUNDARY",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"plain version",
		"--BOUNDARY",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><body><p>html version</p></body></html>",
		"--BOUNDARY--",
		"",
	}, "\r\n")

	msg, err := newTestNormalizer(1000).Normalize([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "plain version")
	// The HTML part is flattened, not carried as markup.
	assert.Contains(t, msg.Body, "html version")
	assert.NotContains(t, msg.Body, "<p>")
}

func TestNormalizeHTMLOnly(t *testing.T) {
	raw := strings.Join([]string{
		"From: shop@example.com",
		"Subject: your order",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<html><body><h1>Thanks!</h1><p>Your order shipped.</p></body></html>",
		"",
	}, "\r\n")

	msg, err := newTestNormalizer(1000).Normalize([]byte(raw))
	require.NoError(t, err)
	assert.Contains(t, msg.Body, "Your order shipped.")
	assert.NotContains(t, msg.Body, "<h1>")
}

func TestNormalizeTruncatesBody(t *testing.T) {
	long := strings.Repeat("a", 5000)
	raw := "From: alice@example.com\r\nSubject: long\r\nContent-Type: text/plain\r\n\r\n" + long

	msg, err := newTestNormalizer(100).Normalize([]byte(raw))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(msg.Body), 100)
}

func TestNormalizeEncodedSubject(t *testing.T) {
	raw := strings.Join([]string{
		"From: alice@example.com",
		"Subject: =?utf-8?q?caf=C3=A9_plans?=",
		"Content-Type: text/plain",
		"",
		"meet there at noon?",
	}, "\r\n")

	msg, err := newTestNormalizer(1000).Normalize([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "café plans", msg.Subject)
}

func TestNormalizeMissingFrom(t *testing.T) {
	raw := "Subject: anonymous\r\nContent-Type: text/plain\r\n\r\nwho am I"

	msg, err := newTestNormalizer(1000).Normalize([]byte(raw))
	require.Error(t, err)
	// The rest of the message is still recovered for the audit trail.
	require.NotNil(t, msg)
	assert.Equal(t, "anonymous", msg.Subject)
	assert.Equal(t, "", msg.Sender)
}
