package terminal

import (
	"strings"
	"testing"
)

func TestConfirm_YesInput(t *testing.T) {
	input := strings.NewReader("y\n")
	output := &strings.Builder{}

	result, err := ConfirmWithIO("Disable protection?", input, output)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if !result {
		t.Error("Expected confirmation to succeed")
	}

	if !strings.Contains(output.String(), "Disable protection? [y/N]") {
		t.Error("Expected question in output")
	}
}

func TestConfirm_DefaultNo(t *testing.T) {
	result, err := ConfirmWithIO("Continue?", strings.NewReader("\n"), &strings.Builder{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result {
		t.Error("Expected empty answer to decline")
	}
}

func TestConfirm_InvalidThenYes(t *testing.T) {
	output := &strings.Builder{}
	result, err := ConfirmWithIO("Continue?", strings.NewReader("maybe\nYES\n"), output)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !result {
		t.Error("Expected second answer to confirm")
	}
	if !strings.Contains(output.String(), "please answer y or n") {
		t.Error("Expected retry hint in output")
	}
}

func TestConfirm_EOF(t *testing.T) {
	result, err := ConfirmWithIO("Continue?", strings.NewReader(""), &strings.Builder{})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result {
		t.Error("Expected end of input to decline")
	}
}
