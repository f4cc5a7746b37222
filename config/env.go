package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv reads a .env file from the working directory into the
// process environment. A missing file is ignored.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// applyEnv overlays environment variables on the configuration. The names
// follow the LM Studio convention used by the deployment scripts.
func (c *Config) applyEnv() {
	setString(&c.LLM.BaseURL, "LMSTUDIO_BASE_URL")
	setString(&c.LLM.APIKey, "LMSTUDIO_API_KEY")
	setString(&c.LLM.Model, "CHAT_MODEL")
	setFloat(&c.LLM.Temperature, "TEMPERATURE")
	setInt(&c.LLM.MaxTokens, "MAX_TOKENS")

	setString(&c.Embedding.BaseURL, "EMBEDDING_BASE_URL")
	setString(&c.Embedding.Model, "EMBEDDING_MODEL")
	setInt(&c.Embedding.Dimension, "EMBEDDING_DIMENSION")

	setInt(&c.Retrieval.TopK, "TOP_K_RESULTS")
	setFloat(&c.Retrieval.Threshold, "SIMILARITY_THRESHOLD")

	setInt(&c.Splitter.ChunkSize, "CHUNK_SIZE")
	setInt(&c.Splitter.ChunkOverlap, "CHUNK_OVERLAP")

	setString(&c.DocumentsPath, "DOCUMENTS_PATH")
	setString(&c.Memory.Dir, "CONVERSATIONS_DIR")
	setInt(&c.Memory.MaxTurns, "MAX_HISTORY_LENGTH")

	if c.Embedding.BaseURL == "" {
		c.Embedding.BaseURL = c.LLM.BaseURL
	}
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = c.LLM.APIKey
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}
