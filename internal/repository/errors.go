package repository

import (
	"errors"
	"fmt"

	"github.com/medhelper/labcart/internal/domain"
)

var (
	ErrLineNotFound         = fmt.Errorf("cart line %w", domain.ErrNotFound)
	ErrRecordNotFound       = fmt.Errorf("test record %w", domain.ErrNotFound)
	ErrNotificationNotFound = fmt.Errorf("notification %w", domain.ErrNotFound)
	ErrUserNotFound         = fmt.Errorf("user %w", domain.ErrNotFound)
	ErrSettingsNotFound     = fmt.Errorf("notification settings %w", domain.ErrNotFound)

	// ErrRecordNotPending is returned when a transition targets a record
	// that already left pending.
	ErrRecordNotPending = errors.New("test record is not pending")
	ErrNestedTx         = errors.New("nested transactions are not supported")
)
