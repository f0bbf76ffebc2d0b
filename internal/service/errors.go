package service

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrComponentNotFound = errors.New("component not found")
	ErrParentNotFound    = errors.New("parent component not found in product")
	ErrScenarioNotFound  = errors.New("scenario not found")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrDuplicateCode     = errors.New("product code already exists")
	ErrArchiveDisabled   = errors.New("report archive is not configured")
)
