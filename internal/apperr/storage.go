package apperr

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

func WrapStorageReadError(target string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "storage error", fmt.Errorf("read %s: %w", target, err))
}

func WrapStorageWriteError(target string, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return NewError(Conflict, fmt.Sprintf("%s already exists", target), err)
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "storage error", fmt.Errorf("write %s: %w", target, err))
}
