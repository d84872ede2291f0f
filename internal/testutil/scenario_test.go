package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteScenario(t *testing.T) {
	dir := t.TempDir()
	path := WriteScenario(t, dir, "counter.yaml", CounterScenario)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, CounterScenario, string(data))
}
