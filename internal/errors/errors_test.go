package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "read log: unexpected EOF", SourceError(io.ErrUnexpectedEOF, "read log").Error())
	assert.Equal(t, "bad flag", ValidationErrorf("bad %s", "flag").Error())
}

func TestWrap_Nil(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrorTypeSource, SeverityHigh, "nothing"))
}

func TestIs_MatchesByType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target *Error
	}{
		{"malformed date", MalformedDate(nil, "created", "2020-13-01"), ErrMalformedDate},
		{"empty timeline", EmptyTimeline("AVRO"), ErrEmptyTimeline},
		{"inconsistent key", InconsistentKey(3, "A.java"), ErrInconsistentKey},
		{"config", ConfigErrorf("missing %s", "projects"), ErrConfig},
		{"source", SourceErrorf(io.EOF, "page %d", 2), ErrSource},
		{"storage", StorageError(io.EOF, "open"), ErrStorage},
		{"filesystem", FileSystemErrorf(io.EOF, "write %s", "x"), ErrFileSystem},
		{"internal", InternalErrorf("state"), ErrInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, stderrors.Is(tt.err, tt.target))
			assert.False(t, stderrors.Is(tt.err, ErrInvalidWindow))

			wrapped := fmt.Errorf("outer: %w", tt.err)
			assert.True(t, stderrors.Is(wrapped, tt.target))
			assert.Equal(t, tt.target.Type, GetType(wrapped))
		})
	}
}

func TestIs_CauseStillReachable(t *testing.T) {
	err := SourceError(io.ErrUnexpectedEOF, "read log")
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(EmptyTimeline("AVRO")))
	assert.True(t, IsFatal(fmt.Errorf("wrapped: %w", ConfigErrorf("x"))))
	assert.False(t, IsFatal(MalformedDate(io.EOF, "created", "x")))
	assert.False(t, IsFatal(SourceError(io.EOF, "x")))
	assert.False(t, IsFatal(io.EOF))
	assert.False(t, IsFatal(nil))
}

func TestGetSeverity(t *testing.T) {
	assert.Equal(t, SeverityLow, GetSeverity(nil))
	assert.Equal(t, SeverityMedium, GetSeverity(io.EOF))
	assert.Equal(t, SeverityHigh, GetSeverity(SourceError(io.EOF, "x")))
	assert.Equal(t, SeverityCritical, GetSeverity(StorageError(io.EOF, "x")))
	assert.Equal(t, ErrorTypeInternal, GetType(io.EOF))
}

func TestGetType_ThroughJoinedErrors(t *testing.T) {
	joined := stderrors.Join(io.EOF, fmt.Errorf("walk: %w", StorageError(io.ErrClosedPipe, "save rows")))

	assert.Equal(t, ErrorTypeStorage, GetType(joined))
	assert.Equal(t, SeverityCritical, GetSeverity(joined))
	assert.True(t, IsFatal(joined))
}

func TestDetailedString(t *testing.T) {
	err := MalformedDate(io.EOF, "resolved", "bad").WithContext("ticket", "AVRO-1")
	out := err.DetailedString()

	assert.True(t, strings.HasPrefix(out, "[LOW] [MALFORMED_DATE] malformed resolved \"bad\""))
	assert.Contains(t, out, "Caused by: EOF")
	assert.Contains(t, out, "  field: resolved\n  ticket: AVRO-1\n  value: bad\n")
	assert.Contains(t, out, "Stack trace:")
}
