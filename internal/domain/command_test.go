package domain

import (
	"testing"
)

func TestNaturalKey(t *testing.T) {
	if got := NaturalKey(SourceWhatsAppText, "wamid.123"); got != "whatsapp_text:wamid.123" {
		t.Errorf("NaturalKey = %q", got)
	}
}

func TestCommandID(t *testing.T) {
	a := CommandID(SourceWhatsAppText, "wamid.123")
	b := CommandID(SourceWhatsAppText, "wamid.123")
	if a != b {
		t.Error("same natural key must derive the same command ID")
	}
	if len(a) != 64 {
		t.Errorf("expected sha256 hex, got len %d", len(a))
	}

	if CommandID(SourcePWAShared, "wamid.123") == a {
		t.Error("different sources must derive different command IDs")
	}
	if CommandID(SourceWhatsAppText, "wamid.124") == a {
		t.Error("different external IDs must derive different command IDs")
	}
}
