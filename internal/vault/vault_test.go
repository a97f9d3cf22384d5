package vault

import (
	"context"
	"errors"
	"testing"

	"github.com/f5devcentral/telemetry-streaming-agent/models"
)

func TestResolveEmptyCipherText(t *testing.T) {
	v := New(Config{}, nil)
	s, err := v.Resolve(context.Background(), models.Secret{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Plaintext != "" {
		t.Fatalf("expected empty plaintext, got %q", s.Plaintext)
	}
}

func TestResolveDefaultIdentity(t *testing.T) {
	v := New(Config{}, nil)
	s, err := v.Resolve(context.Background(), models.Secret{CipherText: "$M$abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Plaintext != "$M$abc" {
		t.Fatalf("expected identity passthrough, got %q", s.Plaintext)
	}
}

func TestResolveCustomDecrypter(t *testing.T) {
	v := New(Config{Decrypt: func(_ context.Context, cipherText string) (string, error) {
		return "plain-" + cipherText, nil
	}}, nil)
	s, err := v.Resolve(context.Background(), models.Secret{CipherText: "xyz"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Plaintext != "plain-xyz" {
		t.Fatalf("got %q", s.Plaintext)
	}
}

func TestResolveDecrypterError(t *testing.T) {
	wantErr := errors.New("boom")
	v := New(Config{Decrypt: func(_ context.Context, _ string) (string, error) {
		return "", wantErr
	}}, nil)
	_, err := v.Resolve(context.Background(), models.Secret{CipherText: "xyz"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped %v, got %v", wantErr, err)
	}
}
