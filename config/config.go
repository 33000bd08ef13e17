// Пакет читает параметры из переменных среды (.env) и хранит общий логер
package config

import (
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Способы сохранения результатов
const (
	SaveJSON         = "json"
	SaveJSONSections = "jsonSec"
	SaveDatabase     = "database"
	SaveClickHouse   = "clickhouse"
)

// Config Структура с параметрами, прочитанными из переменных среды
type Config struct {
	CHPort           string
	CHHost           string
	CHUser           string
	CHBase           string
	CHPass           string
	PGPort           string
	PGHost           string
	PGUser           string
	PGBase           string
	PGPass           string
	SaveDir          string
	MoveDir          string
	SrcDir           string
	SaveAs           string
	CountFilePerTick string
	Workers          string
	MissingValue     string
	LogLevel         string
	LogFile          string
	ChunkSize        string
	BatchSize        string
}

// Logger Общий логер приложения. До вызова LoggerStart пишет в stderr.
var Logger = logrus.New()

// getEnv Получает значение по ключу из переменной среды
func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

// LoggerStart Настраивает формат, уровень и вывод логера
func LoggerStart(out io.Writer, level string) error {
	Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	Logger.SetOutput(out)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Logger.SetLevel(logrus.InfoLevel)
		return fmt.Errorf("log level %q: %w", level, err)
	}
	Logger.SetLevel(lvl)
	return nil
}

// New Заполняет структуру Config из переменных среды
func New() *Config {
	return &Config{
		CHPort:           getEnv("CH_PORT", "9000"),
		CHHost:           getEnv("CH_HOST", "localhost"),
		CHUser:           getEnv("CH_USER", "default"),
		CHBase:           getEnv("CH_BASE", "default"),
		CHPass:           getEnv("CH_PASS", ""),
		PGPort:           getEnv("PG_PORT", "5432"),
		PGHost:           getEnv("PG_HOST", "localhost"),
		PGUser:           getEnv("PG_USER", ""),
		PGBase:           getEnv("PG_BASE", ""),
		PGPass:           getEnv("PG_PASS", ""),
		SaveDir:          getEnv("GRIB_SAVE_DIR", ""),
		MoveDir:          getEnv("MOVE_DIR", ""),
		SrcDir:           getEnv("SOURCE_DIR", ""),
		SaveAs:           getEnv("SAVE_AS", SaveJSON),
		CountFilePerTick: getEnv("COUNT_FILE_PER_TICK", "1"),
		Workers:          getEnv("WORKERS", ""),
		MissingValue:     getEnv("MISSING_VALUE", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFile:          getEnv("LOG_FILE", "parser_log"),
		ChunkSize:        getEnv("CHUNK_SIZE", "1600"),
		BatchSize:        getEnv("BATCH_SIZE", "50000"),
	}
}

// positive Разбирает положительное целое значение параметра
func positive(name, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %d", name, n)
	}
	return n, nil
}

// Parsers Количество файлов, обрабатываемых одновременно
func (c *Config) Parsers() (int, error) {
	return positive("COUNT_FILE_PER_TICK", c.CountFilePerTick)
}

// DecodeWorkers Количество потоков декодирования сообщений внутри одного файла
func (c *Config) DecodeWorkers() (int, error) {
	if c.Workers == "" {
		n := runtime.NumCPU() - 1
		if n < 1 {
			n = 1
		}
		return n, nil
	}
	return positive("WORKERS", c.Workers)
}

// Missing Значение, подставляемое в точки без данных (по умолчанию NaN)
func (c *Config) Missing() (float64, error) {
	if c.MissingValue == "" {
		return math.NaN(), nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(c.MissingValue), 64)
	if err != nil {
		return 0, fmt.Errorf("MISSING_VALUE: %w", err)
	}
	return v, nil
}

// Chunk Размер чанка массива данных при записи в ClickHouse
func (c *Config) Chunk() (int, error) {
	return positive("CHUNK_SIZE", c.ChunkSize)
}

// Batch Размер пачки, отправляемой в ClickHouse
func (c *Config) Batch() (int, error) {
	return positive("BATCH_SIZE", c.BatchSize)
}

// Validate Проверяет согласованность параметров
func (c *Config) Validate() error {
	switch c.SaveAs {
	case SaveJSON, SaveJSONSections:
		if c.SaveDir == "" {
			return fmt.Errorf("GRIB_SAVE_DIR is required for SAVE_AS=%s", c.SaveAs)
		}
	case SaveDatabase, SaveClickHouse:
	default:
		return fmt.Errorf("unknown SAVE_AS %q", c.SaveAs)
	}
	if c.SrcDir == "" {
		return fmt.Errorf("SOURCE_DIR is required")
	}
	if _, err := c.Parsers(); err != nil {
		return err
	}
	if _, err := c.DecodeWorkers(); err != nil {
		return err
	}
	if _, err := c.Missing(); err != nil {
		return err
	}
	if _, err := c.Chunk(); err != nil {
		return err
	}
	if _, err := c.Batch(); err != nil {
		return err
	}
	return nil
}
