package failure

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKind(t *testing.T) {
	t.Run("wrapped sentinels are classified", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", Conflict("period %s overlaps", "p1"))
		assert.Equal(t, ErrConflict, Kind(err))
		assert.Contains(t, err.Error(), "period p1 overlaps")
	})

	t.Run("unknown errors have no kind", func(t *testing.T) {
		assert.Nil(t, Kind(errors.New("boom")))
	})

	t.Run("unavailable keeps the cause", func(t *testing.T) {
		cause := errors.New("server selection timeout")
		err := Unavailable(cause)
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.Same(t, err, Unavailable(err))
		assert.Nil(t, Unavailable(nil))
	})
}
