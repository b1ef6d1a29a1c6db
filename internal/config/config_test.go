package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "NOMINATIM_URL", "EXTERNAL_CALL_TIMEOUT", "MAX_PHOTO_BYTES", "SEED_SAMPLE_RULES", "DEFAULT_CONTACT_EMAIL"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.NominatimURL)
	assert.Equal(t, 10*time.Second, cfg.ExternalTimeout)
	assert.NotEmpty(t, cfg.DefaultContactEmail)
	assert.Equal(t, int64(10*1024*1024), cfg.MaxPhotoBytes)
	assert.False(t, cfg.SeedSampleRules)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EXTERNAL_CALL_TIMEOUT", "3s")
	t.Setenv("MAX_PHOTO_BYTES", "1024")
	t.Setenv("SEED_SAMPLE_RULES", "true")
	t.Setenv("DEFAULT_CONTACT_EMAIL", "ops@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.ExternalTimeout)
	assert.Equal(t, int64(1024), cfg.MaxPhotoBytes)
	assert.True(t, cfg.SeedSampleRules)
	assert.Equal(t, "ops@example.com", cfg.DefaultContactEmail)
}

func TestLoadRejectsBadPhotoLimit(t *testing.T) {
	t.Setenv("MAX_PHOTO_BYTES", "lots")

	_, err := Load()
	assert.Error(t, err)
}
