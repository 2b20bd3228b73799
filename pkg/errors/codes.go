package errors

import (
	"strings"
)

// ErrorCode is a string representation of a specific error condition.
// Codes are "<MODULE>_<NNN>"; the module prefix drives ExitCode.
type ErrorCode string

func (c ErrorCode) String() string {
	return string(c)
}

// Module prefixes.
const (
	ModuleCommon   = "COMMON"
	ModuleConfig   = "CONFIG"
	ModuleIO       = "IO"
	ModuleMolecule = "MOL"
	ModuleCache    = "CACHE"
)

// Common Error Codes
const (
	CodeOK       ErrorCode = "OK"
	CodeUnknown  ErrorCode = "COMMON_000"
	CodeInternal ErrorCode = "COMMON_001"
	CodeCanceled ErrorCode = "COMMON_002"
)

// Configuration Error Codes
const (
	CodeConfigInvalid      ErrorCode = "CONFIG_001"
	CodeConfigUnknownKey   ErrorCode = "CONFIG_002"
	CodeConfigBadExtension ErrorCode = "CONFIG_003"
	CodeConfigLoadFailed   ErrorCode = "CONFIG_004"
	CodeInvalidSplit       ErrorCode = "CONFIG_005"
	CodeUnknownNucleus     ErrorCode = "CONFIG_006"
)

// I/O Error Codes
const (
	CodeRawFileMissing   ErrorCode = "IO_001"
	CodeFileRead         ErrorCode = "IO_002"
	CodeFileWrite        ErrorCode = "IO_003"
	CodeCacheRead        ErrorCode = "IO_004"
	CodeCacheWrite       ErrorCode = "IO_005"
	CodeSplitFileRead    ErrorCode = "IO_006"
	CodeSplitFileWrite   ErrorCode = "IO_007"
	CodeStoreUnavailable ErrorCode = "IO_008"
	CodeObjectNotFound   ErrorCode = "IO_009"
	CodeLockNotAcquired  ErrorCode = "IO_010"
)

// Molecule Error Codes. These describe a single record and never abort a run.
const (
	CodeRecordParse       ErrorCode = "MOL_001"
	CodeSpectrumParse     ErrorCode = "MOL_002"
	CodeNoConformer       ErrorCode = "MOL_003"
	CodeNoBonds           ErrorCode = "MOL_004"
	CodeNoLabels          ErrorCode = "MOL_005"
	CodeElementNotAllowed ErrorCode = "MOL_006"
	CodeLengthMismatch    ErrorCode = "MOL_007"
)

// Cache Error Codes
const (
	CodeCacheCorrupt            ErrorCode = "CACHE_001"
	CodeCacheVersionUnsupported ErrorCode = "CACHE_002"
)

// ErrorCodeMessage maps ErrorCodes to default messages.
var ErrorCodeMessage = map[ErrorCode]string{
	CodeOK:       "ok",
	CodeUnknown:  "unknown error",
	CodeInternal: "internal error",
	CodeCanceled: "operation canceled",

	CodeConfigInvalid:      "invalid configuration",
	CodeConfigUnknownKey:   "unknown configuration key",
	CodeConfigBadExtension: "configuration file must be yaml",
	CodeConfigLoadFailed:   "failed to load configuration",
	CodeInvalidSplit:       "invalid split sizes",
	CodeUnknownNucleus:     "unknown nucleus",

	CodeRawFileMissing:   "raw dataset file not found",
	CodeFileRead:         "failed to read file",
	CodeFileWrite:        "failed to write file",
	CodeCacheRead:        "failed to read processed data",
	CodeCacheWrite:       "failed to write processed data",
	CodeSplitFileRead:    "failed to read split file",
	CodeSplitFileWrite:   "failed to write split file",
	CodeStoreUnavailable: "blob store unavailable",
	CodeObjectNotFound:   "object not found",
	CodeLockNotAcquired:  "failed to acquire build lock",

	CodeRecordParse:       "failed to parse molecule record",
	CodeSpectrumParse:     "failed to parse spectrum annotation",
	CodeNoConformer:       "molecule has no usable conformer",
	CodeNoBonds:           "molecule has no bonds",
	CodeNoLabels:          "molecule has no labelled atoms",
	CodeElementNotAllowed: "molecule contains a disallowed element",
	CodeLengthMismatch:    "label, mask and node counts differ",

	CodeCacheCorrupt:            "processed data is corrupt",
	CodeCacheVersionUnsupported: "unsupported processed data version",
}

// DefaultMessageForCode returns the default message for an ErrorCode.
func DefaultMessageForCode(code ErrorCode) string {
	if msg, ok := ErrorCodeMessage[code]; ok {
		return msg
	}
	return "unknown error"
}

// ModuleForCode returns the module prefix of an ErrorCode.
func ModuleForCode(code ErrorCode) string {
	parts := strings.Split(string(code), "_")
	if len(parts) > 1 && parts[0] != "" {
		return parts[0]
	}
	return "UNKNOWN"
}

// ExitCode maps an error to a process exit status for the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch ModuleForCode(GetCode(err)) {
	case ModuleConfig:
		return 2
	default:
		return 1
	}
}
