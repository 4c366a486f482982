package apperr

type Code int

const (
	Unknown             = Code(0)
	InvalidArgument     = Code(1)
	NotFound            = Code(2)
	Conflict            = Code(3)
	InvalidDate         = Code(4)
	PartialBatchFailure = Code(5)
	Internal            = Code(6)
)

var codeNames = map[Code]string{
	Unknown:             "unknown",
	InvalidArgument:     "invalid_argument",
	NotFound:            "not_found",
	Conflict:            "conflict",
	InvalidDate:         "invalid_date",
	PartialBatchFailure: "partial_batch_failure",
	Internal:            "internal",
}

func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return codeNames[Unknown]
}
