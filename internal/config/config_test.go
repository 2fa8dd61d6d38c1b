package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("INTAKE_LOCK_TTL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, cfg.IntakeLockTTL)
	assert.Equal(t, 10*time.Second, cfg.DispatchTimeout)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Empty(t, cfg.Telegram.BotToken)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9000")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DISPATCH_TIMEOUT", "3s")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.HTTPPort)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 3*time.Second, cfg.DispatchTimeout)
	assert.Equal(t, "123:abc", cfg.Telegram.BotToken)
}

func TestLoad_BadDuration(t *testing.T) {
	t.Setenv("INTAKE_LOCK_TTL", "soon")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_ProductionNeedsPassword(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	cfg, err := Load()
	require.NoError(t, err)
	cfg.DB.Password = ""
	assert.Error(t, cfg.Validate())
}

func TestDatabaseURL_EscapesPassword(t *testing.T) {
	cfg := &Config{}
	cfg.DB.User = "u"
	cfg.DB.Password = "p@ss word"
	cfg.DB.Host = "db"
	cfg.DB.Port = "5432"
	cfg.DB.Database = "helpdesk"
	cfg.DB.SSLMode = "disable"
	assert.Equal(t, "postgres://u:p%40ss+word@db:5432/helpdesk?sslmode=disable", cfg.DatabaseURL())
}
