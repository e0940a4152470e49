package mint

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected           = errors.New("wallet is not connected")
	ErrNoAccounts             = errors.New("wallet did not share any account")
	ErrInvalidAmount          = errors.New("invalid amount of NFTs")
	ErrBatchTooLarge          = errors.New("batch too large")
	ErrInvalidMetadataPointer = errors.New("invalid metadata pointer")
	ErrSignatureCount         = errors.New("wallet returned unexpected number of signed transactions")
)

// Stage of the connect/mint workflow where an external operation failed.
type Stage string

const (
	StageConnect Stage = "connect"
	StageParams  Stage = "suggested-params"
	StageBuild   Stage = "build"
	StageSign    Stage = "sign"
	StageSubmit  Stage = "submit"
	StageConfirm Stage = "confirm"
)

/*
StageError is returned when a call to the wallet or the chain fails. The
transactions broadcast before the failure are not rolled back.
*/
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage of the StageError in err chain, empty when
// err is not StageError.
func FailedStage(err error) Stage {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}
