package selflog

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelfLog_DisabledByDefault(t *testing.T) {
	Disable()
	// must not panic or write anywhere
	Printf("dropped %d", 1)
}

func TestSelfLog_WritesWhenEnabled(t *testing.T) {
	var buf bytes.Buffer
	Enable(&buf)
	defer Disable()

	Printf("Posting HipChat message failed %s: %v", "StatusCode", 500)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var record map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &record))
	assert.Equal(t, "Posting HipChat message failed StatusCode: 500", record["message"])
	assert.Equal(t, "warn", record["level"])
	assert.Contains(t, record, "time")
}

func TestSelfLog_DisableStopsOutput(t *testing.T) {
	var buf bytes.Buffer
	Enable(&buf)
	Disable()

	Printf("not written")
	assert.Empty(t, buf.String())
}

func TestSelfLog_ConcurrentWriters(t *testing.T) {
	var buf bytes.Buffer
	Enable(&buf)
	defer Disable()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				Printf("writer %d line %d", id, j)
			}
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 200)
}
