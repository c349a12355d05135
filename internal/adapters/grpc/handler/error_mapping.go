package handler

import (
	"context"
	"errors"

	"github.com/ogurasousui/driver-retention/internal/core/driver"
	"github.com/ogurasousui/driver-retention/internal/core/filter"
	"github.com/ogurasousui/driver-retention/internal/core/followup"
	"github.com/ogurasousui/driver-retention/internal/core/metrics"
	"github.com/ogurasousui/driver-retention/internal/core/preference"
	"github.com/ogurasousui/driver-retention/internal/core/sheetsync"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, driver.ErrInvalidID),
		errors.Is(err, driver.ErrInvalidWeek),
		errors.Is(err, driver.ErrEmptyImport),
		errors.Is(err, driver.ErrUnknownImportField),
		errors.Is(err, followup.ErrInvalidWeek),
		errors.Is(err, filter.ErrUnknownQuickRange),
		errors.Is(err, filter.ErrEmptyViewName),
		errors.Is(err, metrics.ErrInvalidRange),
		errors.Is(err, preference.ErrInvalidSheetURL):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, driver.ErrDriverNotFound), errors.Is(err, filter.ErrViewNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, driver.ErrNothingToUndo),
		errors.Is(err, driver.ErrNothingToExport),
		errors.Is(err, followup.ErrFutureCheckIn),
		errors.Is(err, sheetsync.ErrNoSheetURL),
		errors.Is(err, sheetsync.ErrEmptySheet):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, sheetsync.ErrSyncHTTPStatus):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
