package routing

import (
	"context"
	"strings"
)

// Engine decides how the provider should handle an inbound call.
//
// Return a decision only. No side effects (no DB writes, no provider calls).
type Engine interface {
	Decide(ctx context.Context, in Inbound) Decision
}

// Inbound is the subset of the call-start event the policy looks at.
type Inbound struct {
	ProviderCallID string
	From           string
	To             string
	// HasRecording is true when the start event already carries a recording.
	HasRecording bool
}

const (
	ModeAck       = "ack"
	ModeVoicemail = "voicemail"
)

// Policy is the configured inbound handling mode.
type Policy struct {
	Mode             string
	Greeting         string
	Language         string
	MaxLengthSeconds int
	// CallbackURL receives the recording-complete notification.
	CallbackURL string
}

// NewPolicy builds a policy whose recording callback lives under baseURL.
func NewPolicy(mode, baseURL, greeting, language string, maxLength int) Policy {
	callback := ""
	if b := strings.TrimRight(strings.TrimSpace(baseURL), "/"); b != "" {
		callback = b + "/webhooks/recording"
	}
	return Policy{
		Mode:             mode,
		Greeting:         greeting,
		Language:         language,
		MaxLengthSeconds: maxLength,
		CallbackURL:      callback,
	}
}

func (p Policy) Decide(ctx context.Context, in Inbound) Decision {
	if p.Mode != ModeVoicemail {
		return Decision{Action: ActionAcknowledge, Reason: "mode_ack"}
	}
	if in.HasRecording {
		return Decision{Action: ActionAcknowledge, Reason: "already_recorded"}
	}
	if p.CallbackURL == "" {
		return Decision{Action: ActionAcknowledge, Reason: "no_callback_url"}
	}
	return Decision{
		Action:           ActionRecordVoicemail,
		Greeting:         p.Greeting,
		Language:         p.Language,
		MaxLengthSeconds: p.MaxLengthSeconds,
		CallbackURL:      p.CallbackURL,
		Reason:           "mode_voicemail",
	}
}
