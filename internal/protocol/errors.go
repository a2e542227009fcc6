package protocol

import "errors"

// Sentinel errors for the error kinds named in the protocol's error
// handling design. Callers branch on these with errors.Is.
var (
	ErrChecksumMismatch  = errors.New("protocol: checksum mismatch")
	ErrProtocolViolation = errors.New("protocol: violation")
	ErrVersionRegression = errors.New("protocol: version regression")
	ErrUnknownFrameType  = errors.New("protocol: unknown frame type")
)
