package style

import "errors"

var (
	ErrInvalidSelector           = errors.New("invalid selector")
	ErrInvalidProperty           = errors.New("invalid property")
	ErrUnsupportedColorFormat    = errors.New("unsupported color format")
	ErrInvalidMediaQuery         = errors.New("invalid media query")
	ErrInvalidStyleSheetArgument = errors.New("invalid stylesheet argument")
)
