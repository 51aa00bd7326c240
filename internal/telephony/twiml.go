package telephony

import (
	"bytes"
	"encoding/xml"
	"errors"
	"strings"

	"call-desk/internal/routing"
)

// TwiML is a minimal Twilio Markup Language response builder.
// It intentionally avoids any provider SDK dependency.
//
// Only include primitives we need at the adapter boundary.

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Verbs   []any    `xml:",any"`
}

type twimlSay struct {
	XMLName  xml.Name `xml:"Say"`
	Language string   `xml:"language,attr,omitempty"`
	Text     string   `xml:",chardata"`
}

type twimlRecord struct {
	XMLName                       xml.Name `xml:"Record"`
	MaxLength                     int      `xml:"maxLength,attr,omitempty"`
	PlayBeep                      bool     `xml:"playBeep,attr"`
	RecordingStatusCallback       string   `xml:"recordingStatusCallback,attr"`
	RecordingStatusCallbackMethod string   `xml:"recordingStatusCallbackMethod,attr"`
	RecordingStatusCallbackEvent  string   `xml:"recordingStatusCallbackEvent,attr"`
}

type twimlHangup struct {
	XMLName xml.Name `xml:"Hangup"`
}

// RenderTwiML maps a record-voicemail decision to TwiML. Acknowledge
// decisions have no TwiML form; the handler answers them with JSON.
func RenderTwiML(d routing.Decision) (string, error) {
	var r twimlResponse

	switch d.Action {
	case routing.ActionRecordVoicemail:
		if strings.TrimSpace(d.CallbackURL) == "" {
			return "", errors.New("telephony: callback url required for voicemail")
		}
		if d.Greeting != "" {
			r.Verbs = append(r.Verbs, twimlSay{Language: d.Language, Text: d.Greeting})
		}
		r.Verbs = append(r.Verbs,
			twimlRecord{
				MaxLength:                     d.MaxLengthSeconds,
				PlayBeep:                      true,
				RecordingStatusCallback:       d.CallbackURL,
				RecordingStatusCallbackMethod: "POST",
				RecordingStatusCallbackEvent:  RecordingStatusCompleted,
			},
			twimlHangup{},
		)
	default:
		return "", errors.New("telephony: decision has no twiml form")
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(r); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
