package email

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildMessage(t *testing.T) {
	at := time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)
	msg := buildMessage("shop@barberq.local", "sam@example.com", "Your appointment is coming up", "See you at 09:30.\nBring the QR code.", at)
	require.True(t, strings.HasPrefix(msg, "From: shop@barberq.local\r\nTo: sam@example.com\r\n"))
	require.Contains(t, msg, "Subject: Your appointment is coming up\r\n")
	require.Contains(t, msg, "Date: Mon, 03 Jun 2024 09:00:00 +0000\r\n")
	require.True(t, strings.HasSuffix(msg, "\r\n\r\nSee you at 09:30.\r\nBring the QR code.\r\n"))
}

func TestNewSMTPSender(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "mailpit", Port: "1025", From: " "})
	require.Equal(t, "no-reply@barberq.local", s.from)
	require.Equal(t, "mailpit:1025", s.addr)
	require.Nil(t, s.auth)

	s = NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: "587", Username: "shop", Password: "pw"})
	require.NotNil(t, s.auth)
}

func TestSendRejectsBadRecipient(t *testing.T) {
	err := NewSMTPSender(SMTPConfig{Host: "127.0.0.1", Port: "1"}).Send("not an address", "s", "b")
	require.ErrorContains(t, err, "invalid recipient")
}
