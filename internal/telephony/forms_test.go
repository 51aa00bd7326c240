package telephony

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func postFormRequest(v url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/recording", strings.NewReader(v.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestParseRecordingForm_DurationIsDecimal(t *testing.T) {
	cases := map[string]int{
		"42":   42,
		"010":  10,
		"08":   8,
		"0":    0,
		"000":  0,
		"":     0,
		"-5":   0,
		"abc":  0,
		"0x10": 0,
		" 7 ":  7,
	}
	for raw, want := range cases {
		form, err := ParseRecordingForm(postFormRequest(url.Values{"RecordingDuration": {raw}}))
		if err != nil {
			t.Fatalf("%q: unexpected err: %v", raw, err)
		}
		if form.RecordingDuration != want {
			t.Fatalf("%q: expected %d, got %d", raw, want, form.RecordingDuration)
		}
	}
}

func TestParseCallStartForm_Fields(t *testing.T) {
	form, err := ParseCallStartForm(postFormRequest(url.Values{
		"From":         {" +491511234567 "},
		"To":           {"+4930111"},
		"CallSid":      {"CA123"},
		"CallStatus":   {"ringing"},
		"CallDuration": {"09"},
	}))
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if form.From != "+491511234567" || form.To != "+4930111" || form.CallSid != "CA123" {
		t.Fatalf("unexpected form: %+v", form)
	}
	if form.CallDuration != 9 || form.RecordingURL != "" {
		t.Fatalf("unexpected duration/recording: %+v", form)
	}
}
