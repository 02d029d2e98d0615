package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfig_IsConfigThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load model: %w", Configf("model has %d folds, want 1", 3))
	if !IsConfig(err) {
		t.Fatalf("expected IsConfig to see wrapped ConfigError")
	}
	if IsDomain(err) {
		t.Fatalf("ConfigError must not be reported as DomainError")
	}
	if err.Error() != "load model: model has 3 folds, want 1" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestDomain_IsDomainThroughWrapping(t *testing.T) {
	err := fmt.Errorf("step 4: %w", Domain("super-state 9 out of range"))
	if !IsDomain(err) {
		t.Fatalf("expected IsDomain to see wrapped DomainError")
	}
	if IsConfig(err) {
		t.Fatalf("DomainError must not be reported as ConfigError")
	}
}

func TestPlainErrorsAreNeither(t *testing.T) {
	err := errors.New("disk full")
	if IsConfig(err) || IsDomain(err) {
		t.Fatalf("plain error classified as a sentinel category")
	}
	if errors.Is(err, ErrCancelled) {
		t.Fatalf("plain error must not match ErrCancelled")
	}
}
