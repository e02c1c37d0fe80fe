// pkg/registry/registry_test.go
package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_CoversEveryQueueJob(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	for _, taskType := range []string{
		"notification.create",
		"queue.generate",
		"queue.process",
		"queue.cancel",
		"queue.cleanup",
		"queue.reprocess",
	} {
		t.Run(taskType, func(t *testing.T) {
			schema, err := reg.InputSchema(taskType)
			require.NoError(t, err)
			assert.Equal(t, "object", schema["type"])
		})
	}
}

func TestInputSchema_Unknown(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	_, err = reg.InputSchema("queue.unknown")
	assert.Error(t, err)
	assert.Panics(t, func() { MustInputSchema("queue.unknown") })
}

func TestActivity_TimeoutDuration(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)

	a, ok := reg.Find("queue.process")
	require.True(t, ok)
	d, err := a.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, d)

	d, err = Activity{}.TimeoutDuration()
	require.NoError(t, err)
	assert.Zero(t, d)
}

func TestLoadRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"2","activities":[{"id":"a","taskType":"queue.x","inputSchema":{"type":"object"}}]}`), 0o600))

	reg, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "2", reg.Version)

	a, ok := reg.Find("queue.x")
	require.True(t, ok)
	assert.Equal(t, "a", a.ID)

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	reg, err := Default()
	require.NoError(t, err)
	assert.NoError(t, reg.Validate())

	broken := &ActivityRegistry{Activities: []Activity{
		{ID: "a", TaskType: "queue.a"},
		{ID: "a", TaskType: "queue.a"},
		{ID: "", TaskType: ""},
		{ID: "c", TaskType: "queue.c", InputSchema: map[string]interface{}{"type": 12}},
		{ID: "d", TaskType: "queue.d", OutputSchema: map[string]interface{}{"type": "nope"}, Timeout: "soon", Retries: -1},
	}}
	err = broken.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"duplicate activity id: a",
		"duplicate task type: queue.a",
		"missing id",
		"activity c: input schema",
		"activity d: output schema",
		`activity d: timeout "soon"`,
		"activity d: negative retries",
	} {
		assert.Contains(t, err.Error(), want)
	}

	assert.Error(t, (&ActivityRegistry{}).Validate())
}
