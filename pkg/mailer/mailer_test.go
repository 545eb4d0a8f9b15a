package mailer

import (
	"context"
	"errors"
	"testing"

	mail "github.com/go-mail/mail/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-portal-api/pkg/config"
)

type senderStub struct {
	sent []*mail.Message
	err  error
}

func (s *senderStub) DialAndSend(m ...*mail.Message) error {
	s.sent = append(s.sent, m...)
	return s.err
}

func TestNewSMTPMailerRequiresHost(t *testing.T) {
	_, err := NewSMTPMailer(config.MailConfig{From: "portal@example.edu"})
	require.Error(t, err)

	m, err := NewSMTPMailer(config.MailConfig{Host: "smtp.example.edu", From: "portal@example.edu"})
	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestSMTPMailerSend(t *testing.T) {
	stub := &senderStub{}
	m := &SMTPMailer{from: "portal@example.edu", dialer: stub}

	require.NoError(t, m.Send(context.Background(), Message{Subject: "none"}))
	require.Empty(t, stub.sent)

	require.NoError(t, m.Send(context.Background(), Message{To: []string{"a@example.edu"}, Subject: "Approved", HTML: "<p>ok</p>"}))
	require.Len(t, stub.sent, 1)
	require.Equal(t, []string{"Approved"}, stub.sent[0].GetHeader("Subject"))

	stub.err = errors.New("dial failed")
	require.Error(t, m.Send(context.Background(), Message{To: []string{"a@example.edu"}}))
}
