package mailer

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/angelmondragon/petpair-backend/pkg/config"
	"github.com/angelmondragon/petpair-backend/pkg/logger"
)

type stubDialer struct {
	sent []*gomail.Message
	err  error
}

func (s *stubDialer) DialAndSend(m ...*gomail.Message) error {
	s.sent = append(s.sent, m...)
	return s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "mailer-test", Output: io.Discard})
}

func TestNewWithoutHostLogsInstead(t *testing.T) {
	sender, err := New(config.MailConfig{}, testLogger())
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := sender.(*LogSender); !ok {
		t.Fatalf("expected log sender, got %T", sender)
	}
	if err := sender.Send(context.Background(), Message{To: "a@b.c", TextBody: "x"}); err != nil {
		t.Fatalf("log send: %v", err)
	}
	if err := sender.Send(context.Background(), Message{}); err == nil {
		t.Fatal("expected missing recipient error")
	}
}

func TestNewRequiresSenderAddress(t *testing.T) {
	if _, err := New(config.MailConfig{Host: "smtp.local", Port: 587}, testLogger()); err == nil {
		t.Fatal("expected missing from error")
	}
}

func TestSMTPSenderSend(t *testing.T) {
	d := &stubDialer{}
	sender := &SMTPSender{from: "no-reply@petpair.local", dialer: d, logg: testLogger()}

	msg := VerificationEmail("owner@example.com", "Ayla", "123456", 10*time.Minute)
	if err := sender.Send(context.Background(), msg); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(d.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(d.sent))
	}
	if got := d.sent[0].GetHeader("To"); len(got) != 1 || got[0] != "owner@example.com" {
		t.Fatalf("unexpected recipient %v", got)
	}

	d.err = errors.New("relay down")
	if err := sender.Send(context.Background(), msg); err == nil {
		t.Fatal("expected relay error")
	}
	if err := sender.Send(context.Background(), Message{To: "x@y.z"}); err == nil {
		t.Fatal("expected empty body error")
	}
}

func TestTemplatesCarryCode(t *testing.T) {
	v := VerificationEmail("a@b.c", "Kai", "987654", 10*time.Minute)
	if !strings.Contains(v.TextBody, "987654") || !strings.Contains(v.TextBody, "10 minutes") {
		t.Fatalf("verification body missing code or expiry: %q", v.TextBody)
	}
	r := PasswordResetEmail("a@b.c", "Kai", "111222", 15*time.Minute)
	if !strings.Contains(r.HTMLBody, "111222") || r.Subject == v.Subject {
		t.Fatalf("unexpected reset mail %+v", r)
	}
}
