package scheduling

// Kind names why a request was refused.
type Kind string

const (
	KindOutOfWindow               Kind = "out_of_window"
	KindOutsideAvailability       Kind = "outside_availability"
	KindSlotConflict              Kind = "slot_conflict"
	KindBlockConflict             Kind = "block_conflict"
	KindInvalidRange              Kind = "invalid_range"
	KindNotCancellable            Kind = "not_cancellable"
	KindCancellationWindowExpired Kind = "cancellation_window_expired"
)

func (k Kind) Message() string {
	switch k {
	case KindOutOfWindow:
		return "requested time is outside the booking window"
	case KindOutsideAvailability:
		return "requested time is outside working hours"
	case KindSlotConflict:
		return "requested time conflicts with an existing appointment"
	case KindBlockConflict:
		return "requested time conflicts with a blocked period"
	case KindInvalidRange:
		return "end must be after start"
	case KindNotCancellable:
		return "appointment can no longer be changed"
	case KindCancellationWindowExpired:
		return "cancellation window has expired"
	}
	return string(k)
}

// Decision is the outcome of an admission check. The zero value admits.
type Decision struct {
	Kind   Kind
	Detail string
}

func (d Decision) Admitted() bool {
	return d.Kind == ""
}

// Reason is a human readable explanation of a refusal.
func (d Decision) Reason() string {
	if d.Detail != "" {
		return d.Detail
	}
	return d.Kind.Message()
}

func reject(k Kind, detail string) Decision {
	return Decision{Kind: k, Detail: detail}
}
