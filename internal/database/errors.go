package database

import "errors"

var (
	ErrNotFound      = errors.New("record not found")
	ErrSlotTaken     = errors.New("slot is no longer available")
	ErrInvalidStatus = errors.New("unknown customer status")
	ErrPastTime      = errors.New("scheduled time is in the past")
)
