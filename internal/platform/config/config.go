// Package config defines process configuration and its layered loading:
// defaults, then an optional YAML file, then environment variables.
package config

// Config contains process configuration.
type Config struct {
	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL selects the PostgreSQL record store. Empty means the
	// in-memory store.
	DatabaseURL string `koanf:"database_url"`

	// RedisURL enables the recognized-text cache. Empty disables it.
	RedisURL string `koanf:"redis_url"`

	// ResponsesPath points at the CSV export of registration submissions.
	ResponsesPath string `koanf:"responses_path"`

	// ImageDir is where fetched ID card images are stored.
	ImageDir string `koanf:"image_dir"`

	// TesseractBinary overrides the OCR binary looked up on PATH.
	TesseractBinary string `koanf:"tesseract_binary"`

	// OCRCacheTTLSeconds bounds the recognized-text cache entries.
	// Zero means entries never expire.
	OCRCacheTTLSeconds int `koanf:"ocr_cache_ttl_seconds"`

	// NameWeight, PhoneWeight and YearWeight control confidence scoring.
	NameWeight  float64 `koanf:"name_weight"`
	PhoneWeight float64 `koanf:"phone_weight"`
	YearWeight  float64 `koanf:"year_weight"`

	// MinConfidence is the candidate threshold applied when a query does
	// not supply one. Must be in [0,1].
	MinConfidence float64 `koanf:"min_confidence"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
}

// New returns a Config populated with defaults. The score weights default
// to a 0.4/0.3/0.3 name/phone/year split.
func New() *Config {
	return &Config{
		Addr:          ":8080",
		ResponsesPath: "data/responses.csv",
		ImageDir:      "data/raw_images",
		NameWeight:    0.4,
		PhoneWeight:   0.3,
		YearWeight:    0.3,
		MinConfidence: 0.8,
		LogLevel:      "info",
	}
}
