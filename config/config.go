package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"
)

const (
	DBTypeSQLite = "sqlite"
	DBTypeMySQL  = "mysql"
)

const (
	defaultImportBatchSize  = 500
	defaultImportQueueSize  = 50
	defaultNumImportWorkers = 2
	defaultJWTExpiryHours   = 24
	defaultReportCacheTTL   = 30
)

type Config struct {
	// database settings
	DatabaseType string // sqlite or mysql
	DatabasePath string // sqlite file path
	MySQLDSN     string // full DSN when DatabaseType is mysql

	// authentication
	JWTSecret string
	JWTExpiry time.Duration

	// import settings
	ImportBatchSize  int
	ImportQueueSize  int
	NumImportWorkers int

	// report response cache
	ReportCacheTTL time.Duration
}

func getEnvOrDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntOrDefault(envVar string, defaultVal int) int {
	valStr := os.Getenv(envVar)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil || val <= 0 {
		log.Printf("Warning: Invalid %s '%s'. Using default %d. Error: %v", envVar, valStr, defaultVal, err)
		return defaultVal
	}
	return val
}

func LoadConfig() (Config, error) {
	dbType := getEnvOrDefault("DB_TYPE", DBTypeSQLite)
	if dbType != DBTypeSQLite && dbType != DBTypeMySQL {
		return Config{}, fmt.Errorf("unsupported DB_TYPE '%s' (supported: %s, %s)", dbType, DBTypeSQLite, DBTypeMySQL)
	}

	dbPath := getEnvOrDefault("DB_PATH", "courtshoes_data.db")

	mysqlDSN := os.Getenv("MYSQL_DSN")
	if mysqlDSN == "" {
		// assemble from parts the way the deployment scripts export them
		user := getEnvOrDefault("DB_USER", "user")
		password := getEnvOrDefault("DB_PASSWORD", "password")
		host := getEnvOrDefault("DB_HOST", "localhost")
		port := getEnvOrDefault("DB_PORT", "3306")
		name := getEnvOrDefault("DB_NAME", "courtshoes")
		mysqlDSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local", user, password, host, port, name)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET must be set")
	}
	jwtExpiryHours := getEnvIntOrDefault("JWT_EXPIRY_HOURS", defaultJWTExpiryHours)

	batchSize := getEnvIntOrDefault("IMPORT_BATCH_SIZE", defaultImportBatchSize)
	queueSize := getEnvIntOrDefault("IMPORT_QUEUE_SIZE", defaultImportQueueSize)
	numWorkers := getEnvIntOrDefault("NUM_IMPORT_WORKERS", defaultNumImportWorkers)

	cacheTTLSeconds := getEnvIntOrDefault("REPORT_CACHE_TTL_SECONDS", defaultReportCacheTTL)

	cfg := Config{
		DatabaseType:     dbType,
		DatabasePath:     dbPath,
		MySQLDSN:         mysqlDSN,
		JWTSecret:        jwtSecret,
		JWTExpiry:        time.Duration(jwtExpiryHours) * time.Hour,
		ImportBatchSize:  batchSize,
		ImportQueueSize:  queueSize,
		NumImportWorkers: numWorkers,
		ReportCacheTTL:   time.Duration(cacheTTLSeconds) * time.Second,
	}

	return cfg, nil
}
