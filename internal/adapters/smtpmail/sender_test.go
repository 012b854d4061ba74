package smtpmail

import (
	"context"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestComposeMessage(t *testing.T) {
	raw := composeMessage("mikey@example.com", "alice@example.com",
		"Action Required: Please verify you are human [ref:deadbeef]",
		"Hello,\n\nPlease reply.\n")

	msg, err := mail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, "mikey@example.com", msg.Header.Get("From"))
	assert.Equal(t, "alice@example.com", msg.Header.Get("To"))
	assert.Contains(t, msg.Header.Get("Subject"), "[ref:deadbeef]")
	// Challenges must identify themselves as automated so they are never
	// answered by another autoresponder loop.
	assert.Equal(t, "auto-replied", msg.Header.Get("Auto-Submitted"))
	assert.Contains(t, raw, "Please reply.\r\n")
}

func TestDryRunSenderSendsNothing(t *testing.T) {
	s := NewDryRunSender(zap.NewNop())
	assert.NoError(t, s.Send(context.Background(), "alice@example.com", "subject", "body"))
}
