package transfer

import "errors"

// Kind classifies a transfer failure. Each kind maps to a fixed process
// exit code so the invoking framework sees a stable taxonomy instead of
// whichever tool error happened first.
type Kind int

const (
	// KindBadRecord means the input line did not parse as a transfer record.
	KindBadRecord Kind = iota + 1
	// KindBadCompression means the record names a compression type the task
	// cannot dispatch on. No remote operation is attempted.
	KindBadCompression
	// KindFetch means the source download failed.
	KindFetch
	// KindDecompress means gzip expansion failed.
	KindDecompress
	// KindStorage means a staging upload or the commit move failed.
	KindStorage
)

// Error is a transfer failure with its classification.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "transfer failed"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode maps an error to the task's process exit code: 0 success,
// 1 unrecognized compression, 2 fetch, 3 decompress, 4 storage, 5 bad
// input record. Errors outside the taxonomy exit 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var te *Error
	if errors.As(err, &te) {
		switch te.Kind {
		case KindBadCompression:
			return 1
		case KindFetch:
			return 2
		case KindDecompress:
			return 3
		case KindStorage:
			return 4
		case KindBadRecord:
			return 5
		}
	}

	return 1
}
