package protocol

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMalformedMessageError(t *testing.T) {
	err := &MalformedMessageError{Reason: "no opcode present", Len: 0}

	if !strings.Contains(err.Error(), "no opcode present") {
		t.Errorf("error message should contain reason, got: %s", err.Error())
	}
	if !strings.Contains(err.Error(), "0 bytes") {
		t.Errorf("error message should contain length, got: %s", err.Error())
	}

	wrapped := fmt.Errorf("dispatch: %w", err)
	if !errors.Is(wrapped, ErrMalformedMessage) {
		t.Error("wrapped error should match ErrMalformedMessage")
	}

	var target *MalformedMessageError
	if !errors.As(wrapped, &target) || target.Reason != "no opcode present" {
		t.Error("errors.As should recover the MalformedMessageError")
	}
}
