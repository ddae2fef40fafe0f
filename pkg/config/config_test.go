package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_ValoresPorDefecto(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "s3cret")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.False(t, cfg.DB.Configured(), "sin DATABASE_URL ni DB_HOST se usa el almacén en memoria")
	assert.Equal(t, int32(10), cfg.DB.MaxConns)
	assert.False(t, cfg.Kafka.Enabled())
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.True(t, cfg.Metrics.Enabled)
}

func TestFromViper_LeeBackendYKafka(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "s3cret")
	v.Set("DB_HOST", "db")
	v.Set("DB_PASSWORD", "p@ss:w/rd")
	v.Set("DB_PORT", "6543")
	v.Set("KAFKA_BROKERS", "k1:9092, k2:9092,")
	v.Set("METRICS_ENABLED", "false")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.DB.Configured())
	assert.Equal(t, "postgres://postgres:p%40ss%3Aw%2Frd@db:6543/cultivo_lab?sslmode=disable", cfg.DB.ConnectionString())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled())
	assert.False(t, cfg.Metrics.Enabled)
}

func TestFromViper_DatabaseURLTienePrioridad(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "s3cret")
	v.Set("DATABASE_URL", "postgresql://u:p@remote:5432/db?sslmode=require")

	cfg, err := FromViper(v)
	require.NoError(t, err)
	assert.True(t, cfg.DB.Configured())
	assert.Equal(t, "postgresql://u:p@remote:5432/db?sslmode=require", cfg.DB.ConnectionString())
}

func TestFromViper_Errores(t *testing.T) {
	_, err := FromViper(viper.New())
	assert.Error(t, err, "JWT_SECRET obligatorio")

	v := viper.New()
	v.Set("JWT_SECRET", "s3cret")
	v.Set("DB_MAX_CONNS", "0")
	_, err = FromViper(v)
	assert.Error(t, err)
}
