package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("load: %w", NewError(NotFound, "task not found", nil))

	assert.True(t, IsCode(err, NotFound))
	assert.False(t, IsCode(err, Conflict))
	assert.False(t, IsCode(errors.New("plain"), NotFound))
	assert.Equal(t, NotFound, CodeOf(err))
	assert.Equal(t, "task not found", Message(err))
}

func TestErrorString(t *testing.T) {
	assert.Equal(t, "[conflict] dup", NewError(Conflict, "dup", nil).Error())
	assert.Equal(t, "[internal] storage error: boom", NewError(Internal, "storage error", errors.New("boom")).Error())
}

func TestWrapStorageErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		wrap func(string, error) error
		want Code
	}{
		{"read not found", gorm.ErrRecordNotFound, WrapStorageReadError, NotFound},
		{"read other", errors.New("disk"), WrapStorageReadError, Internal},
		{"write duplicate", gorm.ErrDuplicatedKey, WrapStorageWriteError, Conflict},
		{"write other", errors.New("disk"), WrapStorageWriteError, Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.wrap("task", tt.err)
			assert.True(t, IsCode(err, tt.want))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}
