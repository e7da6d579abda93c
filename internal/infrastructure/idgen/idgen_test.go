package idgen_test

import (
	"testing"

	"github.com/bravo-music/live/internal/infrastructure/idgen"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionID(t *testing.T) {
	t.Parallel()

	t.Run("it should return increasing ulids", func(t *testing.T) {
		prev := idgen.NewConnectionID()
		for i := 0; i < 100; i++ {
			id := idgen.NewConnectionID()
			_, err := ulid.ParseStrict(id)
			require.NoError(t, err)
			require.Greater(t, id, prev)
			prev = id
		}
	})
}
