package email

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"leadflow/internal/platform/config"
)

// A server that accepts the connection but never sends the SMTP
// greeting. Send must give up when the context deadline passes instead
// of blocking the calling action.
func TestSendHonorsContextDeadline(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	done := make(chan struct{})
	t.Cleanup(func() { close(done) })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// Hold the connection open silently until the test ends.
		<-done
	}()

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("Failed to split address: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	sender := NewSender(config.EmailConfig{
		Provider: "smtp",
		SMTP: config.SMTPConfig{
			Host:        host,
			Port:        port,
			FromAddress: "no-reply@example.com",
		},
	})
	if sender == nil {
		t.Fatal("Expected a configured sender")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = sender.Send(ctx, "ada@example.com", "subject", "body")
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("Expected a timeout error from a silent server")
	}
	if elapsed > 2*time.Second {
		t.Errorf("Send blocked %v past a 300ms deadline", elapsed)
	}
}

func TestSendRefusesClosedPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	host, portStr, _ := net.SplitHostPort(ln.Addr().String())
	port, _ := strconv.Atoi(portStr)
	ln.Close()

	sender := NewSender(config.EmailConfig{
		Provider: "smtp",
		SMTP:     config.SMTPConfig{Host: host, Port: port, FromAddress: "no-reply@example.com"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := sender.Send(ctx, "ada@example.com", "subject", "body"); err == nil {
		t.Error("Expected a dial error against a closed port")
	}
}

func TestNewSenderDisabledWithoutProvider(t *testing.T) {
	if s := NewSender(config.EmailConfig{}); s != nil {
		t.Error("Expected nil sender without a provider")
	}
	if s := NewSender(config.EmailConfig{Provider: "smtp"}); s != nil {
		t.Error("Expected nil sender without an SMTP host")
	}
}
