package password_test

import (
	"strings"
	"testing"

	"github.com/SpatiumPortae/beam/internal/password"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate(t *testing.T) {
	for i := 0; i < 50; i++ {
		pass, err := password.Generate(42)
		require.NoError(t, err)
		assert.True(t, password.IsValid(pass), pass)
		assert.True(t, strings.HasPrefix(pass, "42-"), pass)

		parts := strings.Split(pass, "-")
		require.Len(t, parts, password.Length+1)
		assert.NotEqual(t, parts[1], parts[2])
		assert.NotEqual(t, parts[1], parts[3])
		assert.NotEqual(t, parts[2], parts[3])
	}
}

func TestIsValid(t *testing.T) {
	t.Run("positive", func(t *testing.T) {
		for _, pass := range []string{"1-aurora-beam-comet", "1337-a-b-c"} {
			assert.True(t, password.IsValid(pass), pass)
		}
	})
	t.Run("negative", func(t *testing.T) {
		for _, pass := range []string{"", "aurora-beam-comet", "1-aurora-beam", "1-Aurora-beam-comet", "x-a-b-c", "1-a-b-c-d"} {
			assert.False(t, password.IsValid(pass), pass)
		}
	})
}

func TestHashed(t *testing.T) {
	assert.Equal(t, password.Hashed("1-aurora-beam-comet"), password.Hashed("1-aurora-beam-comet"))
	assert.NotEqual(t, password.Hashed("1-aurora-beam-comet"), password.Hashed("2-aurora-beam-comet"))
	assert.Len(t, password.Hashed("1-aurora-beam-comet"), 64)
}

func TestParse(t *testing.T) {
	t.Run("positive", func(t *testing.T) {
		id, words, err := password.Parse("17-aurora-beam-comet")
		require.NoError(t, err)
		assert.Equal(t, 17, id)
		assert.Equal(t, []string{"aurora", "beam", "comet"}, words)
	})
	t.Run("negative", func(t *testing.T) {
		for _, pass := range []string{"", "-a-b-c", "1-a--c", "+1-a-b-c", "1-a-b"} {
			_, _, err := password.Parse(pass)
			assert.ErrorIs(t, err, password.ErrMalformed, pass)
		}
	})
}
