package infrastructure

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressReader_ReportsAtIntervalAndEOF(t *testing.T) {
	var reports [][2]int64
	pr := newProgressReader(bytes.NewReader(make([]byte, 250)), 0, 250, 100, func(received, total int64) {
		reports = append(reports, [2]int64{received, total})
	})

	buf := make([]byte, 50)
	for {
		_, err := pr.Read(buf)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	require.Len(t, reports, 3)
	assert.Equal(t, [2]int64{100, 250}, reports[0])
	assert.Equal(t, [2]int64{200, 250}, reports[1])
	assert.Equal(t, [2]int64{250, 250}, reports[2])
	assert.Equal(t, int64(250), pr.Received())
}

func TestProgressReader_IncludesOffset(t *testing.T) {
	var last [2]int64
	pr := newProgressReader(bytes.NewReader(make([]byte, 10)), 90, 100, 0, func(received, total int64) {
		last = [2]int64{received, total}
	})

	_, err := io.ReadAll(pr)
	require.NoError(t, err)

	assert.Equal(t, [2]int64{100, 100}, last)
	assert.Equal(t, int64(100), pr.Received())
}
