package model

import "errors"

// ErrValidation marks malformed input: empty required fields, unknown tags and the like.
var ErrValidation = errors.New("validation failed")
