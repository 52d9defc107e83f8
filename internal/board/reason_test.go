package board

import (
	"errors"
	"fmt"
	"testing"

	"github.com/raine/mural-table-bot/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestFailureReason(t *testing.T) {
	assert.Equal(t, ReasonUndecodable, FailureReason(fmt.Errorf("%w: bad header", ErrUndecodableImage)))
	assert.Equal(t, ReasonTimeout, FailureReason(fmt.Errorf("%w: %w", llm.ErrAllModelsFailed, llm.ErrTimeout)))
	assert.Equal(t, ReasonMalformed, FailureReason(llm.ErrMalformedResponse))
	assert.Equal(t, ReasonEmpty, FailureReason(llm.ErrEmptyResponse))
	assert.Equal(t, ReasonModelCall, FailureReason(llm.ErrAllModelsFailed))
	assert.Equal(t, "boom", FailureReason(errors.New("boom")))
}
