package marketdata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrecedence(t *testing.T) {
	p := &Profiles{
		Default: Profile{StepBound: 0.005, BaseVolume: 1_000_000},
		AssetClasses: map[string]Profile{
			"crypto": {StepBound: 0.02, BaseVolume: 250_000},
		},
		Symbols: map[string]Profile{
			"TSLA": {StepBound: 0.015},
		},
	}

	tsla := p.Resolve("TSLA", "equity")
	assert.Equal(t, 0.015, tsla.StepBound)
	assert.Equal(t, int64(1_000_000), tsla.BaseVolume, "missing fields inherit the default")

	btc := p.Resolve("BTC-USD", "crypto")
	assert.Equal(t, 0.02, btc.StepBound)
	assert.Equal(t, int64(250_000), btc.BaseVolume)

	other := p.Resolve("AAPL", "equity")
	assert.Equal(t, p.Default, other)
}

func TestLoadProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `
default:
  step_bound: 0.01
  base_volume: 500000
asset_classes:
  crypto:
    step_bound: 0.03
symbols:
  TSLA:
    base_volume: 900000
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	p, err := LoadProfiles(path)
	require.NoError(t, err)

	assert.Equal(t, 0.01, p.Default.StepBound)
	assert.Equal(t, int64(500_000), p.Default.BaseVolume)

	crypto := p.Resolve("ANY", "crypto")
	assert.Equal(t, 0.03, crypto.StepBound)
	assert.Equal(t, int64(500_000), crypto.BaseVolume)

	tsla := p.Resolve("TSLA", "equity")
	assert.Equal(t, 0.01, tsla.StepBound)
	assert.Equal(t, int64(900_000), tsla.BaseVolume)
}

func TestLoadProfilesMissingFile(t *testing.T) {
	_, err := LoadProfiles("does-not-exist.yaml")
	assert.Error(t, err)
}
