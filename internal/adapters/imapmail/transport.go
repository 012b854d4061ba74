package imapmail

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/mikey/mail-gatekeeper/internal/adapters/mime"
	"github.com/mikey/mail-gatekeeper/internal/config"
	"github.com/mikey/mail-gatekeeper/internal/core"
	"go.uber.org/zap"
)

// Transport is an IMAP implementation of the core.MailTransport interface.
// It connects once at startup; a failed connect is fatal to the whole run.
type Transport struct {
	conn       net.Conn
	client     *imapclient.Client
	mailbox    string
	timeout    time.Duration
	normalizer *mime.Normalizer
	logger     *zap.Logger
}

// Dial connects to the IMAP server, authenticates, and selects the mailbox
func Dial(cfg config.IMAPConfig, normalizer *mime.Normalizer, logger *zap.Logger) (*Transport, error) {
	dialer := &net.Dialer{Timeout: cfg.Timeout}
	conn, err := tls.DialWithDialer(dialer, "tcp", cfg.Server, nil)
	if err != nil {
		return nil, &core.TransportError{Op: "connect", Err: err}
	}

	t := &Transport{
		conn:       conn,
		mailbox:    cfg.Mailbox,
		timeout:    cfg.Timeout,
		normalizer: normalizer,
		logger:     logger,
	}
	t.client = imapclient.New(conn, nil)

	t.extendDeadline()
	if err := t.client.Login(cfg.Username, cfg.Password).Wait(); err != nil {
		t.client.Close()
		return nil, &core.TransportError{Op: "login", Err: err}
	}
	t.extendDeadline()
	if _, err := t.client.Select(cfg.Mailbox, nil).Wait(); err != nil {
		t.client.Close()
		return nil, &core.TransportError{Op: "select", Err: err}
	}

	logger.Info("Connected to IMAP server",
		zap.String("server", cfg.Server),
		zap.String("mailbox", cfg.Mailbox))

	return t, nil
}

// extendDeadline bounds the next command's network I/O so a hung server
// cannot stall the whole run past its deadline
func (t *Transport) extendDeadline() {
	if t.timeout > 0 {
		t.conn.SetDeadline(time.Now().Add(t.timeout))
	}
}

// FetchRecent returns up to maxCount of the most recent messages in the
// selected mailbox
func (t *Transport) FetchRecent(ctx context.Context, maxCount int) ([]core.FetchedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.TransportError{Op: "fetch", Err: err}
	}

	t.extendDeadline()
	searchData, err := t.client.Search(&imap.SearchCriteria{}, nil).Wait()
	if err != nil {
		return nil, &core.TransportError{Op: "search", Err: err}
	}

	seqNums := searchData.AllSeqNums()
	if maxCount > 0 && len(seqNums) > maxCount {
		seqNums = seqNums[len(seqNums)-maxCount:]
	}
	return t.fetch(ctx, seqNums)
}

// FetchBySubject returns messages whose subject contains the given text
func (t *Transport) FetchBySubject(ctx context.Context, subject string) ([]core.FetchedMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &core.TransportError{Op: "fetch", Err: err}
	}

	t.extendDeadline()
	searchData, err := t.client.Search(&imap.SearchCriteria{
		Header: []imap.SearchCriteriaHeaderField{
			{Key: "Subject", Value: subject},
		},
	}, nil).Wait()
	if err != nil {
		return nil, &core.TransportError{Op: "search", Err: err}
	}

	return t.fetch(ctx, searchData.AllSeqNums())
}

// fetch downloads and normalizes the given messages. A message that fails to
// normalize is returned with its ParseError so the caller can record an
// Error verdict instead of losing it silently.
func (t *Transport) fetch(ctx context.Context, seqNums []uint32) ([]core.FetchedMessage, error) {
	if len(seqNums) == 0 {
		return nil, nil
	}

	t.extendDeadline()
	section := &imap.FetchItemBodySection{}
	fetchCmd := t.client.Fetch(imap.SeqSetNum(seqNums...), &imap.FetchOptions{
		BodySection: []*imap.FetchItemBodySection{section},
	})
	msgs, err := fetchCmd.Collect()
	if err != nil {
		return nil, &core.TransportError{Op: "fetch", Err: err}
	}

	fetched := make([]core.FetchedMessage, 0, len(msgs))
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return fetched, &core.TransportError{Op: "fetch", Err: err}
		}
		raw := msg.FindBodySection(section)
		if raw == nil {
			t.logger.Warn("Fetched message without body section", zap.Uint32("seq", msg.SeqNum))
			continue
		}
		normalized, err := t.normalizer.Normalize(raw)
		fetched = append(fetched, core.FetchedMessage{Message: normalized, Err: err})
	}
	return fetched, nil
}

// Close logs out and closes the connection
func (t *Transport) Close() error {
	t.extendDeadline()
	if err := t.client.Logout().Wait(); err != nil {
		return t.client.Close()
	}
	return nil
}
