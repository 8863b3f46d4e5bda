package markov

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/viant/markov/model/mdp"
)

func TestDecodeConfig(t *testing.T) {
	testCases := []struct {
		name      string
		yaml      string
		expectErr bool
		check     func(t *testing.T, c *Config)
	}{
		{
			name: "defaults",
			yaml: "{}",
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DefaultConfig(), c)
				model, err := c.Model()
				require.NoError(t, err)
				assert.Equal(t, mdp.DefaultModel(), model)
			},
		},
		{
			name: "overrides",
			yaml: `
processor:
  workers: 8
dispatcher:
  pollInterval: 5ms
  fallback: false
valueIteration:
  discount: 0.5
  threshold: 0.01
  maxIterations: 10
policy:
  rewards: [5, 2.5, 2.5]
  transitions:
    - [0.2, 0.4, 0.4]
    - [0.2, 0.4, 0.4]
    - [0.2, 0.4, 0.4]
`,
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 8, c.Processor.WorkerCount)
				assert.Equal(t, 5*time.Millisecond, c.Dispatcher.PollInterval)
				assert.False(t, c.Dispatcher.Fallback)
				assert.Equal(t, 0.5, c.ValueIteration.Discount)
				assert.Equal(t, 10, c.ValueIteration.MaxIterations)
				model, err := c.Model()
				require.NoError(t, err)
				assert.Equal(t, mdp.Vector{5, 2.5, 2.5}, model.Rewards)
				assert.Equal(t, 0.2, model.Transitions[0][0])
			},
		},
		{name: "zero workers", yaml: "processor:\n  workers: 0\n", expectErr: true},
		{name: "bad discount", yaml: "valueIteration:\n  discount: 1.5\n", expectErr: true},
		{name: "NaN threshold", yaml: "valueIteration:\n  threshold: .nan\n", expectErr: true},
		{name: "zero threshold", yaml: "valueIteration:\n  threshold: 0\n", expectErr: true},
		{name: "short rewards", yaml: "policy:\n  rewards: [1, 2]\n", expectErr: true},
		{name: "non stochastic", yaml: "policy:\n  transitions: [[1,1,1],[0,1,0],[0,0,1]]\n", expectErr: true},
		{name: "malformed", yaml: "processor: [", expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c, err := DecodeConfig([]byte(tc.yaml))
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.check(t, c)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	location := filepath.Join(t.TempDir(), "markov.yaml")
	require.NoError(t, os.WriteFile(location, []byte("processor:\n  workers: 2\n"), 0644))

	c, err := LoadConfig(context.Background(), location)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Processor.WorkerCount)

	_, err = LoadConfig(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
