package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendReasonBuildsTrail(t *testing.T) {
	t.Parallel()
	b := &Base{}
	b.AppendReason("")
	assert.Empty(t, b.GetReason())

	b.AppendReason("first")
	assert.Equal(t, "first", b.GetReason())

	b.AppendReason("second")
	assert.Equal(t, "first. second", b.GetReason())

	b.AppendReasonf("value %d", 3)
	assert.Equal(t, "first. second. value 3", b.GetReason())
}
