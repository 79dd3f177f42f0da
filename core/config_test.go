package core

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setenv(t *testing.T, key, value string) {
	prev, ok := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("Setenv(%s) failed: %v", key, err)
	}
	t.Cleanup(func() {
		if ok {
			_ = os.Setenv(key, prev)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func TestNewConfig(t *testing.T) {
	setenv(t, "ENV", "qa")
	setenv(t, "QA_STORAGE", StorageMemory)
	setenv(t, "QA_SERVER_ADDRESS", ":9000")
	setenv(t, "QA_DATABASE_PORT", "6543")
	setenv(t, "QA_DEFAULTFROMEMAIL", "School Office <office@school.test>")

	conf := NewConfig()

	assert.Equal(t, "QA", conf.Env)
	assert.False(t, conf.TestMode)
	assert.Equal(t, StorageMemory, conf.Storage)
	assert.Equal(t, ":9000", conf.Server.Address)
	assert.Equal(t, 5*time.Second, conf.Server.ShutdownTimeout)
	assert.Equal(t, "localhost:6543", conf.Database.Address())
	assert.Equal(t, "School Office", conf.DefaultFromEmail.Name)
	assert.Equal(t, "office@school.test", conf.DefaultFromEmail.Address)
}

func TestNewConfig_testEnv(t *testing.T) {
	setenv(t, "ENV", "TEST")

	conf := NewConfig()

	assert.Equal(t, "TEST", conf.Env)
	assert.True(t, conf.TestMode)
	assert.Equal(t, StoragePostgres, conf.Storage)
}
