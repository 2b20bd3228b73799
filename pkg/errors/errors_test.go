package errors_test

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turtacn/ShiftGraph/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// TestNew
// ─────────────────────────────────────────────────────────────────────────────

func TestNew_FieldsAreSetCorrectly(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		code    errors.ErrorCode
		message string
	}{
		{"internal error", errors.CodeInternal, "unexpected failure"},
		{"raw file missing", errors.CodeRawFileMissing, "raw dataset not found"},
		{"invalid split", errors.CodeInvalidSplit, "sizes exceed dataset"},
		{"spectrum parse", errors.CodeSpectrumParse, "bad field count"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ae := errors.New(tc.code, tc.message)

			require.NotNil(t, ae)
			assert.Equal(t, tc.code, ae.Code)
			assert.Equal(t, tc.message, ae.Message)
			assert.Empty(t, ae.Detail)
			assert.Nil(t, ae.Cause)
		})
	}
}

func TestNew_StackMentionsCaller(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeInternal, "test")
	require.NotNil(t, ae)
	assert.Contains(t, ae.Stack, "errors_test.go")
}

func TestNewf_FormatsMessage(t *testing.T) {
	t.Parallel()

	ae := errors.Newf(errors.CodeRecordParse, "record %d: %s", 3, "bad counts line")
	assert.Equal(t, "record 3: bad counts line", ae.Message)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWrap
// ─────────────────────────────────────────────────────────────────────────────

func TestWrap_NilErrReturnsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, errors.Wrap(nil, errors.CodeInternal, "should not matter"))
}

func TestWrap_CauseChainIsPreserved(t *testing.T) {
	t.Parallel()

	root := stderrors.New("permission denied")
	wrapped := errors.Wrap(root, errors.CodeCacheWrite, "store failed")

	require.NotNil(t, wrapped)
	assert.Equal(t, errors.CodeCacheWrite, wrapped.Code)
	assert.Equal(t, root, wrapped.Cause)
	assert.Equal(t, root, stderrors.Unwrap(wrapped))
	assert.True(t, stderrors.Is(wrapped, root))
}

func TestWrap_PreservesOriginalCodeWhenCodeUnknown(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeRawFileMissing, "not found")
	outer := errors.Wrap(inner, errors.CodeUnknown, "adding context")

	require.NotNil(t, outer)
	assert.Equal(t, errors.CodeRawFileMissing, outer.Code)
}

func TestWrap_OverridesCodeWhenExplicit(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeRawFileMissing, "not found")
	outer := errors.Wrap(inner, errors.CodeInternal, "unexpected state")

	assert.Equal(t, errors.CodeInternal, outer.Code)
}

// ─────────────────────────────────────────────────────────────────────────────
// TestError_Method
// ─────────────────────────────────────────────────────────────────────────────

func TestError_Format(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeRawFileMissing, "raw dataset not found")
	assert.Equal(t, "[IO_001] raw dataset not found", ae.Error())

	detailed := ae.WithDetail("/data/raw/carbon_dataset.sdf")
	assert.Equal(t, "[IO_001] raw dataset not found: /data/raw/carbon_dataset.sdf", detailed.Error())

	caused := detailed.WithCause(stderrors.New("no such file"))
	assert.True(t, strings.HasSuffix(caused.Error(), ": no such file"))
}

func TestError_EmptyMessageDoesNotPanic(t *testing.T) {
	t.Parallel()

	ae := errors.New(errors.CodeOK, "")
	assert.NotPanics(t, func() { _ = ae.Error() })
}

// ─────────────────────────────────────────────────────────────────────────────
// TestWithDetail / TestWithCause
// ─────────────────────────────────────────────────────────────────────────────

func TestWithDetail_SetsDetailOnCopy(t *testing.T) {
	t.Parallel()

	original := errors.New(errors.CodeSpectrumParse, "bad annotation")
	detailed := original.WithDetail("key=Spectrum 13C 0")

	assert.Empty(t, original.Detail)
	assert.Equal(t, "key=Spectrum 13C 0", detailed.Detail)
	assert.Equal(t, original.Code, detailed.Code)
}

func TestWithDetail_NilReceiverReturnsNil(t *testing.T) {
	t.Parallel()

	var ae *errors.AppError
	assert.Nil(t, ae.WithDetail("x"))
	assert.Nil(t, ae.WithCause(stderrors.New("x")))
}

func TestWithCause_DoesNotMutateOriginal(t *testing.T) {
	t.Parallel()

	original := errors.New(errors.CodeCacheRead, "read failed")
	_ = original.WithCause(stderrors.New("eof"))
	assert.Nil(t, original.Cause)
}

// ─────────────────────────────────────────────────────────────────────────────
// Chain inspection
// ─────────────────────────────────────────────────────────────────────────────

func TestIsCode_FindsCodeThroughFmtWrapping(t *testing.T) {
	t.Parallel()

	inner := errors.New(errors.CodeCacheCorrupt, "bad magic")
	outer := fmt.Errorf("loading dataset: %w", inner)

	assert.True(t, errors.IsCode(outer, errors.CodeCacheCorrupt))
	assert.False(t, errors.IsCode(outer, errors.CodeCacheRead))
	assert.False(t, errors.IsCode(nil, errors.CodeCacheCorrupt))
}

func TestGetCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, errors.CodeOK, errors.GetCode(nil))
	assert.Equal(t, errors.CodeUnknown, errors.GetCode(stderrors.New("plain")))
	assert.Equal(t, errors.CodeNoBonds, errors.GetCode(errors.New(errors.CodeNoBonds, "x")))
}
