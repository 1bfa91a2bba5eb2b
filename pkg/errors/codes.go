package errors

import "net/http"

// ErrorCode is a string identifier for a specific error condition.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Common error codes
const (
	CodeUnknown        ErrorCode = "COMMON_000"
	CodeInternal       ErrorCode = "COMMON_001"
	CodeInvalidParam   ErrorCode = "COMMON_002"
	CodeNotFound       ErrorCode = "COMMON_003"
	CodeConflict       ErrorCode = "COMMON_004"
	CodeRateLimit      ErrorCode = "COMMON_005"
	CodeUnavailable    ErrorCode = "COMMON_006"
	CodeSerialization  ErrorCode = "COMMON_007"
	CodeDatabaseError  ErrorCode = "COMMON_008"
	CodeCacheError     ErrorCode = "COMMON_009"
	CodePublishError   ErrorCode = "COMMON_010"
	CodeNotImplemented ErrorCode = "COMMON_011"
)

// Molecule parsing error codes
const (
	// CodeParseEmpty — input string is empty or exceeds the length limit.
	CodeParseEmpty ErrorCode = "MOL_001"

	// CodeParseMalformed — input is not syntactically valid line notation
	// (unbalanced brackets, dangling ring closure, unknown element, ...).
	CodeParseMalformed ErrorCode = "MOL_002"

	// CodeParseInvalidValence — the parsed graph assigns an atom more bond
	// order than its element's maximum valence allows.
	CodeParseInvalidValence ErrorCode = "MOL_003"

	// CodeParseDisconnected — input encodes more than one connected component.
	CodeParseDisconnected ErrorCode = "MOL_004"

	// CodeFingerprintFailed — fingerprint computation failed.
	CodeFingerprintFailed ErrorCode = "MOL_005"
)

// Mutation error codes
const (
	// CodeMutationExhausted — no valid edit was found within the retry budget.
	CodeMutationExhausted ErrorCode = "MUT_001"

	// CodeMutationInvalidParent — the parent molecule failed re-validation.
	CodeMutationInvalidParent ErrorCode = "MUT_002"
)

// Generation engine error codes
const (
	// CodeEngineNoValidMutations — an entire generation produced zero valid
	// offspring.
	CodeEngineNoValidMutations ErrorCode = "ENG_001"

	// CodeEngineInvalidParent — the parent molecule (or the supplied lineage
	// seed) failed the engine's defensive re-validation.
	CodeEngineInvalidParent ErrorCode = "ENG_002"

	// CodeEngineBadParams — k_offspring / top_n outside their allowed ranges.
	CodeEngineBadParams ErrorCode = "ENG_003"
)

// Lineage error codes
const (
	// CodeLineageNonMonotonic — accept was called with a generation index
	// that is not exactly previous+1.
	CodeLineageNonMonotonic ErrorCode = "LIN_001"

	// CodeLineageNotFound — no lineage session exists for the given ID.
	CodeLineageNotFound ErrorCode = "LIN_002"

	// CodeLineageSeedMismatch — the supplied lineage's seed does not match
	// the evolution request.
	CodeLineageSeedMismatch ErrorCode = "LIN_003"
)

// HTTPStatus maps an ErrorCode to the HTTP status the interface layer should
// return.  Codes that indicate caller mistakes map to 4xx; everything else is
// a 500.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case CodeInvalidParam, CodeParseEmpty, CodeParseMalformed,
		CodeParseInvalidValence, CodeParseDisconnected,
		CodeEngineBadParams, CodeLineageNonMonotonic, CodeLineageSeedMismatch:
		return http.StatusBadRequest
	case CodeNotFound, CodeLineageNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeRateLimit:
		return http.StatusTooManyRequests
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	case CodeEngineNoValidMutations:
		// The request was well-formed but the stochastic search came up
		// empty; 422 lets clients distinguish this from a malformed request.
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
