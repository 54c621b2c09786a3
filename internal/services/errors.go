package services

import (
	"errors"
	"fmt"

	"github.com/parcelrate/api/internal/pricing"
	"github.com/parcelrate/api/internal/repositories"
)

var (
	// ErrConfigurationMissing is returned while no tariff has been published.
	ErrConfigurationMissing = pricing.ErrConfigurationMissing
	// ErrRepositoryUnavailable wraps transient persistence failures.
	ErrRepositoryUnavailable = errors.New("repository unavailable")

	ErrRateConfigInvalidInput = errors.New("rate config: invalid input")
	ErrRateConfigConflict     = errors.New("rate config: version conflict")

	ErrZoneInvalidInput = errors.New("zone: invalid input")
	ErrZoneNotFound     = errors.New("zone: not found")
	ErrZoneConflict     = errors.New("zone: conflict")
	// ErrZoneInUse blocks deleting a zone that orders still reference.
	ErrZoneInUse = errors.New("zone: referenced by orders")

	ErrOrderInvalidInput = errors.New("order: invalid input")
	ErrOrderNotFound     = errors.New("order: not found")
	ErrOrderInvalidState = errors.New("order: invalid status transition")
	ErrOrderConflict     = errors.New("order: conflict")

	ErrTicketInvalidInput = errors.New("support: invalid input")
	ErrTicketNotFound     = errors.New("support: ticket not found")
	ErrTicketInvalidState = errors.New("support: invalid status transition")
)

// mapRepositoryError translates repository classifications into the caller's sentinels.
func mapRepositoryError(err error, notFound, conflict error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound() && notFound != nil:
			return fmt.Errorf("%w: %v", notFound, err)
		case repoErr.IsConflict() && conflict != nil:
			return fmt.Errorf("%w: %v", conflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
		}
	}
	return err
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
