package services

import "errors"

// ErrInvalidImport is returned when an import body is not parseable dotenv.
var ErrInvalidImport = errors.New("invalid dotenv input")
