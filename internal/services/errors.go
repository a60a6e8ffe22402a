package services

import "errors"

var (
	ErrEmptyFieldMap  = errors.New("a mapping needs at least one field pair")
	ErrNothingArmed   = errors.New("select one left field and one right field before confirming")
	ErrUnknownField   = errors.New("field is not part of the task's field list")
	ErrViewClosed     = errors.New("preview view is closed")
	ErrUnknownView    = errors.New("preview view not found")
	ErrUnknownSession = errors.New("pairing session not found")
	ErrUnknownMapping = errors.New("mapping is not known")
)
