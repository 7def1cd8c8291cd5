package scheduler

import (
	"errors"

	"github.com/backoffice/installments/internal/domain/shared"
)

var (
	// ErrSchedulerNotRunning is returned when a manual run is requested on a stopped trigger
	ErrSchedulerNotRunning = shared.NewDomainError("SCHEDULER_NOT_RUNNING", "Status sweep scheduler is not running")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSweepInProgress is returned when a sweep is requested while another one runs
	ErrSweepInProgress = shared.NewDomainError("SWEEP_IN_PROGRESS", "Status sweep already in progress")
)
