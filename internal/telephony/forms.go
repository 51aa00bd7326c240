package telephony

import (
	"net/http"
	"strings"

	"github.com/spf13/cast"
)

// Twilio voice webhooks are application/x-www-form-urlencoded.
// Ref: https://www.twilio.com/docs/voice/twiml#request-parameters
//
// These types stay provider-adapter-only; no business logic here.

// CallStartForm is the voice webhook sent when a call reaches our number.
type CallStartForm struct {
	CallSid      string
	From         string
	To           string
	CallStatus   string
	CallDuration int
	// RecordingURL is the provider reference without extension; optional.
	RecordingURL string
}

// CallStatusForm is the status callback sent as the call progresses.
type CallStatusForm struct {
	CallSid      string
	From         string
	CallStatus   string
	CallDuration int
	RecordingURL string
}

// RecordingForm is the recordingStatusCallback payload.
type RecordingForm struct {
	CallSid           string
	RecordingSid      string
	RecordingURL      string
	RecordingStatus   string
	RecordingDuration int
}

const RecordingStatusCompleted = "completed"

// Completed reports whether the recording is final. In-progress and failed
// events are acknowledged and otherwise ignored.
func (f RecordingForm) Completed() bool {
	return strings.EqualFold(f.RecordingStatus, RecordingStatusCompleted)
}

func ParseCallStartForm(r *http.Request) (CallStartForm, error) {
	if err := r.ParseForm(); err != nil {
		return CallStartForm{}, err
	}
	return CallStartForm{
		CallSid:      field(r, "CallSid"),
		From:         normalizePhone(r.PostFormValue("From")),
		To:           normalizePhone(r.PostFormValue("To")),
		CallStatus:   field(r, "CallStatus"),
		CallDuration: seconds(r, "CallDuration"),
		RecordingURL: field(r, "RecordingUrl"),
	}, nil
}

func ParseCallStatusForm(r *http.Request) (CallStatusForm, error) {
	if err := r.ParseForm(); err != nil {
		return CallStatusForm{}, err
	}
	return CallStatusForm{
		CallSid:      field(r, "CallSid"),
		From:         normalizePhone(r.PostFormValue("From")),
		CallStatus:   field(r, "CallStatus"),
		CallDuration: seconds(r, "CallDuration"),
		RecordingURL: field(r, "RecordingUrl"),
	}, nil
}

func ParseRecordingForm(r *http.Request) (RecordingForm, error) {
	if err := r.ParseForm(); err != nil {
		return RecordingForm{}, err
	}
	return RecordingForm{
		CallSid:           field(r, "CallSid"),
		RecordingSid:      field(r, "RecordingSid"),
		RecordingURL:      field(r, "RecordingUrl"),
		RecordingStatus:   field(r, "RecordingStatus"),
		RecordingDuration: seconds(r, "RecordingDuration"),
	}, nil
}

func field(r *http.Request, key string) string {
	return strings.TrimSpace(r.PostFormValue(key))
}

// seconds tolerates missing or malformed durations: they count as 0.
// Values are decimal; leading zeros are dropped so cast does not read
// them as octal.
func seconds(r *http.Request, key string) int {
	v := strings.TrimLeft(field(r, key), "0")
	if v == "" {
		return 0
	}
	n, err := cast.ToIntE(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	// Twilio sometimes sends "anonymous" or empty; keep as-is.
	return s
}
