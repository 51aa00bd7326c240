package telephony

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"call-desk/internal/calls"
	"call-desk/internal/metrics"
	"call-desk/internal/notify"
	"call-desk/internal/routing"
	"call-desk/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CallRecorder is the slice of calls.Service the webhooks write through.
type CallRecorder interface {
	RecordInbound(ctx context.Context, in calls.InboundCall) (calls.Call, bool, error)
	FindByProviderCallID(ctx context.Context, sid string) (calls.Call, error)
	ApplyProviderUpdate(ctx context.Context, sid string, p calls.ProviderPatch) (calls.Call, error)
}

// Archiver mirrors a provider audio URL into public storage.
type Archiver interface {
	Archive(ctx context.Context, callSID, audioURL string) (publicURL string, err error)
}

// Notifier is the chat Notification Dispatcher. It never fails.
type Notifier interface {
	NotifyCall(ctx context.Context, n notify.CallNotice)
	NotifyVoicemail(ctx context.Context, n notify.VoicemailNotice)
}

// WebhookHandler serves the provider webhooks.
//
// Provider replies must always acknowledge: only the primary store write may
// produce a 500. Archive and notification failures are logged and dropped.
type WebhookHandler struct {
	Calls    CallRecorder
	Policy   routing.Engine
	Archiver Archiver // optional
	Notifier Notifier // optional
	Metrics  *metrics.Metrics

	// NotifyOnStatusCompleted also alerts when a status callback reports
	// the call as completed.
	NotifyOnStatusCompleted bool
}

const providerStatusCompleted = "completed"

// CallStart handles POST /webhooks/call-start.
func (h *WebhookHandler) CallStart(c *gin.Context) {
	const route = "call_start"
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	form, err := ParseCallStartForm(c.Request)
	if err != nil {
		h.Metrics.Webhook(route, metrics.OutcomeRejected)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	log = log.With("call_sid", form.CallSid)

	call, created, err := h.Calls.RecordInbound(ctx, calls.InboundCall{
		CallerPhone:   form.From,
		CalledNumber:  form.To,
		ProviderSID:   form.CallSid,
		ProviderState: form.CallStatus,
		Duration:      form.CallDuration,
		RecordingURL:  form.RecordingURL,
	})
	if err != nil {
		log.Error("record inbound call failed", "err", err)
		h.Metrics.Webhook(route, metrics.OutcomeError)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to save call"})
		return
	}

	if created {
		log.Info("inbound call recorded", "call_id", call.ID, "has_voicemail", call.HasVoicemail)
		audio := ""
		if call.VoicemailURL != nil {
			audio = h.archive(ctx, form.CallSid, *call.VoicemailURL)
		}
		h.notifyCall(ctx, notify.CallNotice{CallerPhone: call.CallerPhone, Duration: call.CallDuration, AudioURL: audio})
	} else {
		log.Info("duplicate call-start ignored", "call_id", call.ID)
	}

	decision := routing.Decision{Action: routing.ActionAcknowledge}
	if h.Policy != nil {
		decision = h.Policy.Decide(ctx, routing.Inbound{
			ProviderCallID: form.CallSid,
			From:           form.From,
			To:             form.To,
			HasRecording:   form.RecordingURL != "",
		})
	}
	h.Metrics.Webhook(route, metrics.OutcomeOK)

	if decision.Action != routing.ActionRecordVoicemail {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	body, err := RenderTwiML(decision)
	if err != nil {
		// the call is stored; fall back to a plain acknowledgement
		log.Error("render twiml failed", "err", err)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(body))
}

// CallStatus handles POST /webhooks/call-status.
func (h *WebhookHandler) CallStatus(c *gin.Context) {
	const route = "call_status"
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	form, err := ParseCallStatusForm(c.Request)
	if err != nil {
		h.Metrics.Webhook(route, metrics.OutcomeRejected)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	log = log.With("call_sid", form.CallSid, "call_status", form.CallStatus)

	duration := form.CallDuration
	notes := calls.ProviderNotes(form.CallStatus)
	patch := calls.ProviderPatch{CallDuration: &duration, Notes: &notes}
	if form.RecordingURL != "" {
		u := calls.VoicemailURLFor(form.RecordingURL)
		patch.VoicemailURL = &u
	}

	call, err := h.Calls.ApplyProviderUpdate(ctx, form.CallSid, patch)
	switch {
	case err == nil:
	case errors.Is(err, calls.ErrNotFound), errors.Is(err, calls.ErrInvalidArgument):
		log.Warn("status callback matched no call", "err", err)
		h.Metrics.Webhook(route, metrics.OutcomeIgnored)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	case errors.Is(err, calls.ErrAmbiguousMatch):
		log.Error("status callback matched multiple calls", "err", err)
		h.Metrics.Webhook(route, metrics.OutcomeIgnored)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	default:
		log.Error("apply status update failed", "err", err)
		h.Metrics.Webhook(route, metrics.OutcomeError)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to update call"})
		return
	}

	if h.NotifyOnStatusCompleted && strings.EqualFold(form.CallStatus, providerStatusCompleted) {
		audio := ""
		if patch.VoicemailURL != nil {
			audio = h.archive(ctx, form.CallSid, *patch.VoicemailURL)
		}
		h.notifyCall(ctx, notify.CallNotice{CallerPhone: call.CallerPhone, Duration: call.CallDuration, AudioURL: audio})
	}

	h.Metrics.Webhook(route, metrics.OutcomeOK)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Recording handles POST /webhooks/recording.
func (h *WebhookHandler) Recording(c *gin.Context) {
	const route = "recording"
	ctx := c.Request.Context()
	log := logger.FromGin(c)

	form, err := ParseRecordingForm(c.Request)
	if err != nil {
		h.Metrics.Webhook(route, metrics.OutcomeRejected)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid form"})
		return
	}
	log = log.With("call_sid", form.CallSid, "recording_status", form.RecordingStatus)

	if !form.Completed() || form.RecordingURL == "" {
		log.Info("recording callback ignored")
		h.Metrics.Webhook(route, metrics.OutcomeIgnored)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	callerPhone := ""
	if existing, err := h.Calls.FindByProviderCallID(ctx, form.CallSid); err != nil {
		log.Warn("recording for unknown call", "err", err)
	} else {
		callerPhone = existing.CallerPhone
	}

	audioURL := calls.VoicemailURLFor(form.RecordingURL)
	duration := form.RecordingDuration
	_, err = h.Calls.ApplyProviderUpdate(ctx, form.CallSid, calls.ProviderPatch{
		CallDuration: &duration,
		VoicemailURL: &audioURL,
	})
	switch {
	case err == nil:
	case errors.Is(err, calls.ErrNotFound), errors.Is(err, calls.ErrAmbiguousMatch), errors.Is(err, calls.ErrInvalidArgument):
		log.Error("voicemail not attached", "err", err)
	default:
		log.Error("attach voicemail failed", "err", err)
		h.Metrics.Webhook(route, metrics.OutcomeError)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to process recording"})
		return
	}

	publicURL := h.archive(ctx, form.CallSid, audioURL)
	if callerPhone != "" && h.Notifier != nil {
		h.Notifier.NotifyVoicemail(ctx, notify.VoicemailNotice{CallerPhone: callerPhone, AudioURL: publicURL})
	} else if callerPhone == "" {
		log.Info("no caller phone for voicemail, notification skipped")
	}

	h.Metrics.Webhook(route, metrics.OutcomeOK)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// archive returns the public URL, or "" when archiving is off or failed.
func (h *WebhookHandler) archive(ctx context.Context, sid, audioURL string) string {
	if h.Archiver == nil {
		return ""
	}
	u, err := h.Archiver.Archive(ctx, sid, audioURL)
	if err != nil {
		logger.From(ctx).Warn("voicemail archive failed", "call_sid", sid, "err", err)
		return ""
	}
	return u
}

func (h *WebhookHandler) notifyCall(ctx context.Context, n notify.CallNotice) {
	if h.Notifier == nil {
		return
	}
	h.Notifier.NotifyCall(ctx, n)
}
