package config

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config enthält alle Konfigurationsparameter aus Umgebungsvariablen.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Harvester-Konfiguration
	UserAgent       string `envconfig:"HARVEST_USER_AGENT" default:"journal-index-harvester/1.0"`
	HTTPTimeout     int    `envconfig:"HARVEST_HTTP_TIMEOUT" default:"60"`
	HTTPRetries     int    `envconfig:"HARVEST_HTTP_RETRIES" default:"3"`
	HarvestMaxPages int    `envconfig:"HARVEST_MAX_PAGES" default:"10000"`

	// Import-Drain-Konfiguration
	ImportBatchLimit int `envconfig:"IMPORT_BATCH_LIMIT" default:"100"`

	HarvestCronSchedule string `envconfig:"HARVEST_CRON_SCHEDULE" default:"0 2 * * *"`
	ImportCronSchedule  string `envconfig:"IMPORT_CRON_SCHEDULE" default:"*/5 * * * *"`

	// Optionales S3-Archiv für rohe Harvest-Seiten; leer lassen zum Deaktivieren.
	ArchiveS3Key    string `envconfig:"ARCHIVE_S3_KEY"`
	ArchiveS3Secret string `envconfig:"ARCHIVE_S3_SECRET"`
	ArchiveS3URL    string `envconfig:"ARCHIVE_S3_URL"`
	ArchiveS3Region string `envconfig:"ARCHIVE_S3_REGION"`
	ArchiveS3Bucket string `envconfig:"ARCHIVE_S3_BUCKET"`
}

// DSN gibt den Data Source Name für die PostgreSQL-Verbindung zurück.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// ArchiveEnabled meldet, ob das S3-Archiv für rohe Seiten konfiguriert ist.
func (c *Config) ArchiveEnabled() bool {
	return c.ArchiveS3URL != "" && c.ArchiveS3Bucket != ""
}

// Load lädt die Konfiguration aus den Umgebungsvariablen.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
