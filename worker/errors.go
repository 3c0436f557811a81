package worker

import (
	apperrors "github.com/goliatone/go-errors"
)

const (
	ErrCodeDisposed           = "WORKER_DISPOSED"
	ErrCodeNotRestartable     = "WORKER_NOT_RESTARTABLE"
	ErrCodeAlreadyRunning     = "WORKER_ALREADY_RUNNING"
	ErrCodeMutateWhileRunning = "WORKER_MUTATE_WHILE_RUNNING"
)

var (
	ErrDisposed = apperrors.New("worker is disposed", apperrors.CategoryConflict).
			WithTextCode(ErrCodeDisposed)
	ErrNotRestartable = apperrors.New("worker cannot restart after a full stop", apperrors.CategoryConflict).
				WithTextCode(ErrCodeNotRestartable)
	ErrAlreadyRunning = apperrors.New("worker is already running", apperrors.CategoryConflict).
				WithTextCode(ErrCodeAlreadyRunning)
	ErrMutateWhileRunning = apperrors.New("property cannot change while the worker runs", apperrors.CategoryConflict).
				WithTextCode(ErrCodeMutateWhileRunning)
)
