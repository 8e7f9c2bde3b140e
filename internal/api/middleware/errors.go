package middleware

import "errors"

var errInvalidToken = errors.New("invalid token")
