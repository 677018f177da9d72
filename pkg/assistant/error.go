package assistant

const (
	GeneralErrorExitCode     = 1  // bash general error exit code
	LowCoverageErrorExitCode = 12 // thresholds not met or coverage decreased exit code
)

// Error carries the exit code of a failed run.
type Error struct {
	ExitCode   int
	Err        error
	ErrMessage string
}

func WrapErrorWithCode(err error, exitCode int, errMessage string) *Error {
	return &Error{
		ExitCode:   exitCode,
		Err:        err,
		ErrMessage: errMessage,
	}
}

func WrapError(err error, errMessage string) *Error {
	return WrapErrorWithCode(err, GeneralErrorExitCode, errMessage)
}

func (e *Error) Error() string {
	if e.ErrMessage == "" {
		return e.Err.Error()
	}
	return e.ErrMessage + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
