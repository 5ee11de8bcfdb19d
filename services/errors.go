package services

import (
	"errors"
	"fmt"

	"github.com/Dosada05/tournament-engine/repositories"
)

// Ошибки движка. Все они завершают только текущую операцию и не повторяются автоматически.
var (
	// Ресурс не найден
	ErrNotFound            = errors.New("requested resource not found")
	ErrTournamentNotFound  = fmt.Errorf("tournament %w", ErrNotFound)
	ErrParticipantNotFound = fmt.Errorf("participant registration %w", ErrNotFound)
	ErrMatchNotFound       = fmt.Errorf("match %w", ErrNotFound)

	// Жизненный цикл турнира
	ErrInvalidTransition   = errors.New("invalid tournament state transition")
	ErrTournamentNotOpen   = errors.New("tournament is not open for registration")
	ErrTournamentCancelled = errors.New("tournament is cancelled")
	ErrWrongFormat         = errors.New("operation is not supported by the tournament format")

	// Регистрация
	ErrCapacityExceeded     = errors.New("tournament capacity exceeded")
	ErrNotPending           = errors.New("registration is not pending")
	ErrPaymentNotConfirmed  = errors.New("registration payment is not confirmed")
	ErrRegistrationConflict = errors.New("game id is already registered for this tournament")

	// Результаты матчей
	ErrInvalidScore       = errors.New("score must be an integer between 0 and 99")
	ErrMatchNotReady      = errors.New("match participants are not resolved yet")
	ErrResultAlreadyFinal = errors.New("match result is already final")
	ErrTieNotAllowed      = errors.New("knockout match cannot end in a tie without a shootout winner")

	ErrValidationFailed       = errors.New("validation failed")
	ErrConcurrentModification = errors.New("tournament was modified concurrently, retry the request")
)

// StateError - отказ в операции вместе с актуальным состоянием затронутой сущности,
// чтобы клиент мог перерисовать данные без повторного запроса.
type StateError struct {
	Err      error
	Snapshot interface{}
}

func (e *StateError) Error() string { return e.Err.Error() }

func (e *StateError) Unwrap() error { return e.Err }

func withSnapshot(err error, snapshot interface{}) error {
	return &StateError{Err: err, Snapshot: snapshot}
}

// rejectf оборачивает ошибку-вид с уточнением и снимком состояния.
func rejectf(kind error, snapshot interface{}, format string, args ...interface{}) error {
	return withSnapshot(fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...)), snapshot)
}

// SnapshotOf возвращает снимок состояния из ошибки, если он есть.
func SnapshotOf(err error) (interface{}, bool) {
	var stateErr *StateError
	if errors.As(err, &stateErr) && stateErr.Snapshot != nil {
		return stateErr.Snapshot, true
	}
	return nil, false
}

// ErrorCode - машиночитаемый код ошибки для клиентов API.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(err, ErrTournamentNotOpen):
		return "tournament_not_open"
	case errors.Is(err, ErrNotPending):
		return "not_pending"
	case errors.Is(err, ErrInvalidScore):
		return "invalid_score"
	case errors.Is(err, ErrMatchNotReady):
		return "match_not_ready"
	case errors.Is(err, ErrResultAlreadyFinal):
		return "result_already_final"
	case errors.Is(err, ErrTieNotAllowed):
		return "tie_not_allowed"
	case errors.Is(err, ErrTournamentCancelled):
		return "tournament_cancelled"
	case errors.Is(err, ErrWrongFormat):
		return "wrong_format"
	case errors.Is(err, ErrPaymentNotConfirmed):
		return "payment_not_confirmed"
	case errors.Is(err, ErrRegistrationConflict):
		return "registration_conflict"
	case errors.Is(err, ErrConcurrentModification):
		return "concurrent_modification"
	case errors.Is(err, ErrValidationFailed):
		return "validation_failed"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAuthInvalidCredentials):
		return "invalid_credentials"
	default:
		return "internal_error"
	}
}

// mapStoreError переводит ошибки хранилища в ошибки сервиса.
func mapStoreError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repositories.ErrNotFound):
		return notFound
	case errors.Is(err, repositories.ErrVersionConflict):
		return fmt.Errorf("%w: %v", ErrConcurrentModification, err)
	case errors.Is(err, repositories.ErrConflict):
		return fmt.Errorf("%w: %v", ErrRegistrationConflict, err)
	default:
		return err
	}
}
