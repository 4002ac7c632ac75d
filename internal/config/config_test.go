package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
logging:
  level: debug
database:
  driver: postgres
  dsn: postgres://prism@localhost:5432/prism
scheduler:
  cronExpression: "*/30 * * * *"
  timezone: America/Mexico_City
llm:
  provider: gemini
  temperature: 0.4
embedding:
  dimensions: 768
  maxChars: 4000
retry:
  attempts: 5
  baseDelay: 1s
  maxDelay: 1m
  callTimeout: 30s
sources:
  - name: fr
    kind: federalregister
    url: https://www.federalregister.gov/api/v1/documents.json
  - name: yt
    kind: transcripts
    ids: [abc, def]
    country: Mexico
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "prism.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{databaseDSNEnv, openAIKeyEnv, geminiKeyEnv, transcriptTokenEnv, xBearerTokenEnv, logLevelEnv} {
		t.Setenv(key, "")
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	clearEnv(t)

	cfg := LoadFile(writeConfig(t, sampleYAML))

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "postgres://prism@localhost:5432/prism", cfg.Database.DSN)
	assert.Equal(t, "prism", cfg.Database.MongoDatabase)
	assert.Equal(t, "*/30 * * * *", cfg.Scheduler.CronExpression)
	assert.Equal(t, "America/Mexico_City", cfg.Scheduler.Location().String())
	assert.Equal(t, ProviderGemini, cfg.LLM.Provider)
	assert.InDelta(t, 0.4, cfg.ChatGPT.Temperature, 1e-9)
	assert.Equal(t, ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimensions)
	assert.Equal(t, 4000, cfg.Embedding.MaxChars)

	// attempts and backoff stay fixed; only the call timeout is configurable
	policy := cfg.Retry.Policy()
	assert.Equal(t, 3, policy.Attempts)
	assert.Equal(t, 2*time.Second, policy.BaseDelay)
	assert.Equal(t, 15*time.Second, policy.MaxDelay)
	assert.Equal(t, 30*time.Second, policy.CallTimeout)

	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, []string{"abc", "def"}, cfg.Sources[1].IDs)
	assert.Equal(t, "Mexico", cfg.Sources[1].Country)
}

func TestLoadFileEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DSN", "postgres://env")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("YOUTUBE_TRANSCRIPT_TOKEN", "yt-token")
	t.Setenv("X_BEARER_TOKEN", "x-token")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := LoadFile(writeConfig(t, sampleYAML+`  - name: x
    kind: xposts
`))

	assert.Equal(t, "postgres://env", cfg.Database.DSN)
	assert.Equal(t, "sk-env", cfg.ChatGPT.APIKey)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Empty(t, cfg.Sources[0].Token)
	assert.Equal(t, "yt-token", cfg.Sources[1].Token)
	assert.Equal(t, "x-token", cfg.Sources[2].Token)
}

func TestLoadFileFallsBackOnBadInput(t *testing.T) {
	clearEnv(t)
	cfg := LoadFile(writeConfig(t, "sources: [:"))
	assert.Equal(t, defaultConfig().Embedding, cfg.Embedding)
	assert.Empty(t, cfg.Sources)

	cfg = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
}

func TestUnknownTimezoneFallsBackToUTC(t *testing.T) {
	clearEnv(t)
	cfg := LoadFile(writeConfig(t, "scheduler:\n  timezone: Mars/Olympus\n"))
	assert.Equal(t, time.UTC.String(), cfg.Scheduler.Location().String())
}

func TestValidate(t *testing.T) {
	cfg := defaultConfig()
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sources configured")
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")

	cfg.Sources = []SourceConfig{{Name: "fr", Kind: "federalregister"}}
	cfg.Embedding.APIKey = "sk"
	require.NoError(t, cfg.Validate())

	cfg.Database.Driver = DriverMongo
	assert.ErrorContains(t, cfg.Validate(), "dsn is required")

	cfg.Database.Driver = "sqlite"
	assert.ErrorContains(t, cfg.Validate(), "unknown driver")
}
