package domain

import "errors"

var (
	ErrCertificateNotFound = errors.New("certificate not found")
	// ErrAmbiguousSerial is returned when a serial number matches more than one row.
	ErrAmbiguousSerial    = errors.New("serial number matches more than one certificate")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrInvalidInput       = errors.New("invalid input")
)
