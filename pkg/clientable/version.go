package clientable

import (
	"errors"
	"fmt"
	"strings"
)

// ProtocolVersion is the wire convention spoken with a remote service.
type ProtocolVersion string

const (
	// V1 is the legacy convention: pagination metadata nested in data, no batch operations.
	V1 ProtocolVersion = "v1"

	// V2 carries pagination in meta.paginator and supports batch operations.
	V2 ProtocolVersion = "v2"
)

// Static errors for err113 compliance.
var (
	ErrUnknownProtocolVersion = errors.New("unknown protocol version")
)

// ParseProtocolVersion parses a protocol version name. The empty string yields V2.
func ParseProtocolVersion(value string) (ProtocolVersion, error) {
	switch ProtocolVersion(strings.ToLower(strings.TrimSpace(value))) {
	case "", V2:
		return V2, nil
	case V1:
		return V1, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProtocolVersion, value)
	}
}

// SupportsBatch reports whether batch-shaped operations are available.
func (v ProtocolVersion) SupportsBatch() bool {
	return v != V1
}

// String implements fmt.Stringer.
func (v ProtocolVersion) String() string {
	return string(v)
}
