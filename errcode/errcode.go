package errcode

// Code is a stable, bus-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Busy           Code = "busy"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	InvalidTopic   Code = "invalid_topic"
	NotReady       Code = "not_ready"

	// Lifecycle / resource codes.
	BackendFault     Code = "backend_fault"
	NotFound         Code = "not_found"
	NotBound         Code = "not_bound"
	StartFailed      Code = "start_failed"
	UnknownSubsystem Code = "unknown_subsystem"
	UnknownModule    Code = "unknown_module"
	InvalidShape     Code = "invalid_shape"

	Error Code = "error" // generic fallback
)

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
