package envelope

import "errors"

// Status tracks an envelope through the send flow. Completion is driven by
// the signing provider's redirect, outside this process's control flow.
type Status string

const (
	StatusUnsent          Status = "unsent"
	StatusSent            Status = "sent"
	StatusViewGenerated   Status = "view_generated"
	StatusSendFailed      Status = "send_failed"
	StatusCompleted       Status = "completed"
	StatusHandoffConsumed Status = "handoff_consumed"
)

// NoEnvelopeID is the sentinel reported before the provider assigns an ID or
// when assignment fails.
const NoEnvelopeID = "N/A"

var transitions = map[Status][]Status{
	StatusUnsent:        {StatusSent, StatusSendFailed},
	StatusSent:          {StatusViewGenerated, StatusSendFailed, StatusCompleted},
	StatusViewGenerated: {StatusCompleted},
	StatusCompleted:     {StatusHandoffConsumed},
}

// CanTransition reports whether next is a legal successor of s. SendFailed
// and HandoffConsumed are terminal.
func (s Status) CanTransition(next Status) bool {
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

var (
	// ErrEnvelopeSend signals the provider rejected the payload or assigned
	// no envelope ID.
	ErrEnvelopeSend = errors.New("envelope: send failed")
	// ErrViewGeneration signals the embedded signing view could not be minted.
	ErrViewGeneration = errors.New("envelope: view generation failed")
)

// PartyData identifies the counterparty and the agreement's commercial terms.
type PartyData struct {
	CompanyName string
	ClientName  string
	ClientEmail string
	Currency    string
}

// SendResult is the value returned from SendAgreement. Failures never
// propagate as panics past this boundary; every outcome is a result value.
type SendResult struct {
	Success     bool
	SigningLink string
	EnvelopeID  string
	Message     string
}
