package mime

import (
	"bytes"
	"errors"
	"io"
	netmail "net/mail"
	"net/textproto"
	"strings"

	"github.com/emersion/go-message"
	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"github.com/mikey/mail-gatekeeper/internal/utils"
	"go.uber.org/zap"
)

var errNoSender = errors.New("no parseable From address")

// Normalizer turns a raw RFC822 message into a core.Message: sender address
// extracted and lowercased, subject decoded, body flattened to plain text
// and truncated to the configured bound.
type Normalizer struct {
	maxBodySize   int
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
}

// NewNormalizer creates a new normalizer
func NewNormalizer(maxBodySize int, textProcessor *utils.TextProcessor, logger *zap.Logger) *Normalizer {
	return &Normalizer{
		maxBodySize:   maxBodySize,
		textProcessor: textProcessor,
		logger:        logger,
	}
}

// Normalize parses raw message bytes. On failure it returns a ParseError
// together with whatever fields could still be recovered, so the caller can
// attribute the failure to a sender in the audit trail.
func (n *Normalizer) Normalize(raw []byte) (*core.Message, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return partialMessage(raw), &core.ParseError{Field: "message", Err: err}
	}

	msg := &core.Message{
		Headers: make(map[string]string),
	}

	fields := mr.Header.Fields()
	for fields.Next() {
		msg.Headers[textproto.CanonicalMIMEHeaderKey(fields.Key())] = fields.Value()
	}

	msg.Sender = extractSender(mr.Header)
	if subject, err := mr.Header.Subject(); err == nil {
		msg.Subject = subject
	} else {
		msg.Subject = mr.Header.Get("Subject")
	}

	var body strings.Builder
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			// A broken part should not lose the rest of the message
			n.logger.Debug("Skipping malformed MIME part", zap.Error(err))
			break
		}

		if header, ok := part.Header.(*mail.InlineHeader); ok {
			contentType, _, _ := header.ContentType()
			content, err := io.ReadAll(part.Body)
			if err != nil {
				continue
			}
			switch contentType {
			case "text/plain":
				body.Write(content)
			case "text/html":
				body.WriteString(html2text.HTML2Text(string(content)))
			}
		}
	}

	msg.Body = strings.TrimSpace(n.textProcessor.Snippet(body.String(), n.maxBodySize))

	if msg.Sender == "" {
		return msg, &core.ParseError{Field: "from", Err: errNoSender}
	}
	return msg, nil
}

// extractSender pulls the first address out of the From header
func extractSender(header mail.Header) string {
	if addrs, err := header.AddressList("From"); err == nil && len(addrs) > 0 {
		return core.NormalizeAddress(addrs[0].Address)
	}
	// Fall back to a lenient parse of the raw header
	if addr, err := netmail.ParseAddress(header.Get("From")); err == nil {
		return core.NormalizeAddress(addr.Address)
	}
	return ""
}

// partialMessage recovers the sender from raw bytes when full parsing failed
func partialMessage(raw []byte) *core.Message {
	msg := &core.Message{Headers: make(map[string]string)}
	if parsed, err := netmail.ReadMessage(bytes.NewReader(raw)); err == nil {
		if addr, err := netmail.ParseAddress(parsed.Header.Get("From")); err == nil {
			msg.Sender = core.NormalizeAddress(addr.Address)
		}
		msg.Subject = parsed.Header.Get("Subject")
	}
	return msg
}
