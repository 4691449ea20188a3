package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("AI_TIMEOUT", "")
	t.Setenv("FREE_DAILY_MESSAGES", "")

	cfg := Load()

	assert.Equal(t, "firestore", cfg.StoreDriver)
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, 20, cfg.FreeDailyMessages)
	assert.Equal(t, time.Minute, cfg.ReminderInterval)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "sqlite")
	t.Setenv("AI_TIMEOUT", "5s")
	t.Setenv("FREE_DAILY_GENERATIONS", "3")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.AITimeout)
	assert.Equal(t, 3, cfg.FreeDailyGenerations)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("AI_TIMEOUT", "soon")
	t.Setenv("FREE_DAILY_MESSAGES", "many")

	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, 20, cfg.FreeDailyMessages)
}
