package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("job", nil)))
	assert.Equal(t, KindBadRequest, KindOf(BadRequest("bad payload", nil)))
	assert.Equal(t, KindConflict, KindOf(Conflict("already working", nil)))
	assert.Equal(t, KindUnauthorized, KindOf(Unauthorized(nil)))
	assert.Equal(t, KindThirdParty, KindOf(ThirdParty("scheduler", nil)))

	// Plain errors default to internal.
	assert.Equal(t, KindInternal, KindOf(fmt.Errorf("boom")))
}

func TestIsKindUnwraps(t *testing.T) {
	wrapped := fmt.Errorf("executing job: %w", NotFound("job", nil))
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.False(t, IsKind(wrapped, KindConflict))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestNotFoundMessage(t *testing.T) {
	err := NotFound("job", nil)
	assert.Equal(t, "job doesn't exist", err.Error())
}

func TestCritical(t *testing.T) {
	assert.False(t, Critical(nil))
	assert.True(t, Critical(fmt.Errorf("db down")))
	assert.True(t, Critical(Internal(fmt.Errorf("db down"))))

	nc := NonCritical(fmt.Errorf("smtp refused"))
	assert.False(t, Critical(nc))

	// The tag survives wrapping.
	assert.False(t, Critical(fmt.Errorf("email transport: %w", nc)))
}

func TestNonCriticalNil(t *testing.T) {
	assert.Nil(t, NonCritical(nil))
}
