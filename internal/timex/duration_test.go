package timex

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"string hours", `"1h"`, time.Hour, false},
		{"string compound", `"168h30m"`, 168*time.Hour + 30*time.Minute, false},
		{"nanoseconds", `1000000000`, time.Second, false},
		{"bad string", `"soon"`, 0, true},
		{"bool", `true`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := json.Unmarshal([]byte(tt.in), &d)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration)
		})
	}
}

func TestDuration_MarshalJSON(t *testing.T) {
	b, err := json.Marshal(Duration{Duration: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, `"24h0m0s"`, string(b))
}

func TestDuration_UnmarshalYAML(t *testing.T) {
	var cfg struct {
		TTL   Duration `yaml:"ttl"`
		Nanos Duration `yaml:"nanos"`
	}
	err := yaml.Unmarshal([]byte("ttl: 24h\nnanos: 5000\n"), &cfg)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.TTL.Duration)
	assert.Equal(t, 5000*time.Nanosecond, cfg.Nanos.Duration)

	require.Error(t, yaml.Unmarshal([]byte("ttl: [1, 2]\n"), &cfg))
}
