package models

// TransitionCode identifies which lifecycle precondition was violated.
type TransitionCode string

const (
	CodeAlreadySentOrSigned TransitionCode = "already_sent_or_signed"
	CodeMustBeSentFirst     TransitionCode = "must_be_sent_first"
	CodeAlreadySent         TransitionCode = "already_sent"
	CodeAlreadyPaid         TransitionCode = "already_paid"
	CodeNotYetSent          TransitionCode = "not_yet_sent"
)

// TransitionError is returned when a lifecycle operation is requested on a
// record whose current status does not allow it. The record is left untouched.
type TransitionError struct {
	Code   TransitionCode
	Reason string
}

func (e *TransitionError) Error() string { return e.Reason }

// Is matches on Code so callers can test against the sentinels below even
// when the reason text differs.
func (e *TransitionError) Is(target error) bool {
	t, ok := target.(*TransitionError)
	return ok && t.Code == e.Code
}

var (
	ErrAlreadySentOrSigned = &TransitionError{Code: CodeAlreadySentOrSigned, Reason: "Contract has already been sent or signed"}
	ErrMustBeSentFirst     = &TransitionError{Code: CodeMustBeSentFirst, Reason: "Contract must be sent before it can be signed"}

	ErrInvoiceAlreadySent = &TransitionError{Code: CodeAlreadySent, Reason: "Invoice has already been sent"}
	ErrAlreadyPaid        = &TransitionError{Code: CodeAlreadyPaid, Reason: "Invoice has already been paid"}
	ErrAlreadyMarkedPaid  = &TransitionError{Code: CodeAlreadyPaid, Reason: "Invoice is already marked as paid"}
	ErrNotYetSent         = &TransitionError{Code: CodeNotYetSent, Reason: "Invoice must be sent before sending reminders"}
)
