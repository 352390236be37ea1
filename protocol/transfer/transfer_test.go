package transfer_test

import (
	"testing"

	"github.com/SpatiumPortae/beam/protocol/transfer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTotalChunks(t *testing.T) {
	tests := []struct {
		size      int64
		chunkSize int
		expected  int64
	}{
		{0, 4, 0},
		{1, 4, 1},
		{4, 4, 1},
		{5, 4, 2},
		{10, 4, 3},
		{16384, transfer.ChunkSize, 1},
		{16385, transfer.ChunkSize, 2},
		{7, 1, 7},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, transfer.TotalChunks(tc.size, tc.chunkSize), "size=%d chunk=%d", tc.size, tc.chunkSize)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 0, transfer.Percent(0, 10))
	assert.Equal(t, 40, transfer.Percent(4, 10))
	assert.Equal(t, 66, transfer.Percent(2, 3))
	assert.Equal(t, 100, transfer.Percent(10, 10))
	assert.Equal(t, 100, transfer.Percent(12, 10))
	assert.Equal(t, 100, transfer.Percent(0, 0))
}

func TestMetadata(t *testing.T) {
	t.Run("wire format", func(t *testing.T) {
		b, err := transfer.EncodeMetadata(transfer.Metadata{FileName: "a.txt", FileSize: 10, TotalChunks: 3})
		require.NoError(t, err)
		assert.JSONEq(t, `{"type":"file-meta","data":{"fileName":"a.txt","fileSize":10,"totalChunks":3}}`, string(b))
	})

	t.Run("decode", func(t *testing.T) {
		meta, err := transfer.DecodeMetadata([]byte(`{"type":"file-meta","data":{"fileName":"b.bin","fileSize":5,"totalChunks":2,"chunkSize":4}}`))
		require.NoError(t, err)
		assert.Equal(t, transfer.Metadata{FileName: "b.bin", FileSize: 5, TotalChunks: 2, ChunkSize: 4}, meta)
		assert.True(t, meta.Consistent())
	})

	t.Run("malformed", func(t *testing.T) {
		for _, raw := range []string{
			`not json`,
			`{"type":"chat","data":{"fileName":"x","fileSize":1,"totalChunks":1}}`,
			`{"type":"file-meta"}`,
			`{"type":"file-meta","data":{"fileName":"x","fileSize":-1,"totalChunks":0}}`,
		} {
			_, err := transfer.DecodeMetadata([]byte(raw))
			assert.ErrorIs(t, err, transfer.ErrMalformedMetadata, raw)
		}
	})

	t.Run("inconsistent chunk count", func(t *testing.T) {
		meta := transfer.Metadata{FileName: "c", FileSize: 10, TotalChunks: 2, ChunkSize: 4}
		assert.False(t, meta.Consistent())
		assert.Equal(t, int64(3), transfer.NewMetadata("c", 10, 4).TotalChunks)
	})
}
