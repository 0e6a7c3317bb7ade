package grass

import "errors"

// Configuration problems. They never abort the host: a pipeline that hits
// one renders nothing and reports it through HasIssues, State and Err.
var (
	ErrNoVertices      = &ConfigurationError{Reason: "no source vertices"}
	ErrMissingProgram  = &ConfigurationError{Reason: "generator program not set"}
	ErrMissingMaterial = &ConfigurationError{Reason: "material not set"}
	ErrMissingNoise    = &ConfigurationError{Reason: "wind noise field not set"}
	ErrInvalidSegments = &ConfigurationError{Reason: "max segments must be at least 1"}
	ErrInvalidSettings = &ConfigurationError{Reason: "invalid settings"}
)

// ConfigurationError reports missing bindings or invalid settings.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return "grass: " + e.Reason + ": " + e.Err.Error()
	}
	return "grass: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Is matches any ConfigurationError with the same reason, so a detailed
// error still satisfies errors.Is against the sentinels above.
func (e *ConfigurationError) Is(target error) bool {
	var ce *ConfigurationError
	if !errors.As(target, &ce) {
		return false
	}
	return ce.Reason == e.Reason
}

func configError(base *ConfigurationError, err error) *ConfigurationError {
	return &ConfigurationError{Reason: base.Reason, Err: err}
}

// IsConfigurationError reports whether err is a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
