package calls

import "time"

// ApplyPatch is the triage state machine. Any status may follow any other;
// entering in_progress or done stamps the matching timestamp only if it is
// still unset, so a revert and re-entry keeps the first stamp.
func ApplyPatch(c Call, p Patch, now time.Time) Call {
	if p.Status != nil {
		c.Status = *p.Status
		switch c.Status {
		case StatusInProgress:
			if c.ProcessedAt == nil {
				t := now
				c.ProcessedAt = &t
			}
		case StatusDone:
			if c.CompletedAt == nil {
				t := now
				c.CompletedAt = &t
			}
		}
	}
	if p.AssignedTo.Set {
		c.AssignedTo = cloneString(p.AssignedTo.Value)
	}
	if p.Notes != nil {
		c.Notes = cloneString(p.Notes)
	}
	if p.CallbackNotes != nil {
		c.CallbackNotes = cloneString(p.CallbackNotes)
	}
	c.UpdatedAt = now
	return c
}

// ApplyProviderPatch merges webhook-reported facts into a call.
func ApplyProviderPatch(c Call, p ProviderPatch, now time.Time) Call {
	if p.CallDuration != nil {
		d := *p.CallDuration
		if d < 0 {
			d = 0
		}
		c.CallDuration = d
	}
	if p.Notes != nil {
		c.Notes = cloneString(p.Notes)
	}
	if p.VoicemailURL != nil {
		c.VoicemailURL = cloneString(p.VoicemailURL)
		c.HasVoicemail = true
	}
	c.UpdatedAt = now
	return c
}

// VoicemailURLFor turns a provider recording reference into its audio URL.
func VoicemailURLFor(recordingURL string) string {
	return recordingURL + ".mp3"
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func stringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
