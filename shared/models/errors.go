package models

import "errors"

var ErrUnknownEventType = errors.New("unknown event type")
