package main

import (
	"errors"
	"testing"

	"github.com/pwojcieszonek/pvectl/internal/config"
	"github.com/pwojcieszonek/pvectl/internal/document"
)

func TestSessionRejectsMalformedDocuments(t *testing.T) {
	a := &app{cfg: &config.Config{}}
	s := a.session()

	if s.Validate == nil {
		t.Fatal("session has no document validator")
	}
	if err := s.Validate("cores: 4\nname: web-01\n"); err != nil {
		t.Errorf("valid document rejected: %v", err)
	}

	err := s.Validate("cores: [unclosed\n")
	if err == nil {
		t.Fatal("malformed document accepted")
	}
	var malformed *document.MalformedError
	if !errors.As(err, &malformed) {
		t.Errorf("error = %v, want MalformedError", err)
	}
}
