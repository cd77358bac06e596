package domain

import "errors"

var (
	ErrRunNotFound     = errors.New("analysis run not found")
	ErrSubjectNotFound = errors.New("no analyses for subject")
	ErrInvalidItem     = errors.New("invalid classified item")
	ErrRunInProgress   = errors.New("analysis run still in progress")
)
