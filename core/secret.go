package core

// Secret wraps a sensitive string such as an API key with protection against
// accidental logging. The value never leaks through String(), GoString(), or
// any marshaling path; call Expose() where the raw value is genuinely needed
// (building auth headers).
type Secret struct {
	value string
}

// NewSecret creates a Secret from a string value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

// String returns a redacted placeholder. Implements fmt.Stringer.
func (s Secret) String() string {
	return "[REDACTED]"
}

// GoString returns a redacted placeholder for %#v formatting.
func (s Secret) GoString() string {
	return "core.Secret{[REDACTED]}"
}

// MarshalJSON returns a redacted JSON string.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"[REDACTED]"`), nil
}

// MarshalText returns a redacted text representation, covering YAML and
// other text-based encoders.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte("[REDACTED]"), nil
}

// Expose returns the actual secret value.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty reports whether the secret holds no value.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}
