package routing

// Decision is the provider-agnostic answer to an inbound call.
//
// It carries only what the provider adapter (the TwiML builder) needs to
// execute it. No provider identity and no provider-specific fields belong here.
type Decision struct {
	Action Action `json:"action"`

	// Voicemail parameters; set only when Action is ActionRecordVoicemail.
	Greeting         string `json:"greeting,omitempty"`
	Language         string `json:"language,omitempty"`
	MaxLengthSeconds int    `json:"max_length_seconds,omitempty"`
	CallbackURL      string `json:"callback_url,omitempty"`

	// Reason is optional and intended for internal logs/metrics.
	Reason string `json:"reason,omitempty"`
}

type Action string

const (
	// ActionAcknowledge replies with a plain acknowledgement; call handling is
	// configured at the provider.
	ActionAcknowledge Action = "acknowledge"
	// ActionRecordVoicemail plays the greeting and records a message.
	ActionRecordVoicemail Action = "record_voicemail"
)
