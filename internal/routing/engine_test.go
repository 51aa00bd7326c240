package routing

import (
	"context"
	"testing"
)

func TestPolicy_AckMode(t *testing.T) {
	p := NewPolicy(ModeAck, "https://desk.example.com", "hi", "de-DE", 120)
	d := p.Decide(context.Background(), Inbound{ProviderCallID: "CA1"})
	if d.Action != ActionAcknowledge {
		t.Fatalf("expected acknowledge, got %q", d.Action)
	}
}

func TestPolicy_VoicemailMode(t *testing.T) {
	p := NewPolicy(ModeVoicemail, "https://desk.example.com/", "Bitte sprechen Sie", "de-DE", 90)
	d := p.Decide(context.Background(), Inbound{ProviderCallID: "CA1"})
	if d.Action != ActionRecordVoicemail {
		t.Fatalf("expected record_voicemail, got %q", d.Action)
	}
	if d.CallbackURL != "https://desk.example.com/webhooks/recording" {
		t.Fatalf("unexpected callback url %q", d.CallbackURL)
	}
	if d.MaxLengthSeconds != 90 || d.Language != "de-DE" {
		t.Fatalf("unexpected voicemail params: %+v", d)
	}
}

func TestPolicy_VoicemailSkippedWhenRecordingPresent(t *testing.T) {
	p := NewPolicy(ModeVoicemail, "https://desk.example.com", "hi", "de-DE", 120)
	d := p.Decide(context.Background(), Inbound{HasRecording: true})
	if d.Action != ActionAcknowledge {
		t.Fatalf("expected acknowledge, got %q", d.Action)
	}
}

func TestPolicy_VoicemailWithoutCallbackFallsBack(t *testing.T) {
	p := NewPolicy(ModeVoicemail, "", "hi", "de-DE", 120)
	d := p.Decide(context.Background(), Inbound{})
	if d.Action != ActionAcknowledge || d.Reason != "no_callback_url" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}
