// Пакет создает пул соединений для базы данных PostgreSQL и проверяет наличие необходимых таблиц
package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gribdecode.com/config"
)

// ConnString Формирует строку подключения из конфигурации
func ConnString(cfg *config.Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.PGUser, cfg.PGPass),
		Host:     fmt.Sprintf("%s:%s", cfg.PGHost, cfg.PGPort),
		Path:     "/" + cfg.PGBase,
		RawQuery: "pool_max_conns=100",
	}
	return u.String()
}

// Create Инициализирует пул соединений и создает таблицы, если их не существует
func Create(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, ConnString(cfg))
	if err != nil {
		config.Logger.WithError(err).Error("Ошибка подключения")
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		config.Logger.WithError(err).Error("Не удалось подключиться, проверьте правильность данных для авторизации!")
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// gribTable Таблица с расшифрованными полями
const gribTable = `CREATE TABLE IF NOT EXISTS %[1]s
(
	id uuid NOT NULL,
	grib_datetime timestamp without time zone,
	valid_time timestamp without time zone,
	forecast_time bigint,
	parameter text,
	surface_type text,
	surface_value text,
	grid_properties json,
	grib_data double precision[],
	grib_data_int integer[],
	CONSTRAINT %[1]s_pkey PRIMARY KEY (id)
)`

// hashTable Таблица, в которой хранятся хеш-суммы прочитанных файлов
const hashTable = `CREATE TABLE IF NOT EXISTS hashes
(
	grib_hash character varying(256) NOT NULL,
	CONSTRAINT hashes_pkey PRIMARY KEY (grib_hash)
)`

// Schema Запросы на создание таблиц
func Schema() []string {
	return []string{
		fmt.Sprintf(gribTable, "grib_data"),
		fmt.Sprintf(gribTable, "grib_data_buff"),
		hashTable,
	}
}

// Migrate Создает таблицы для данных и хеш-сумм
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, q := range Schema() {
		if _, err := pool.Exec(ctx, q); err != nil {
			config.Logger.WithError(err).Error("Ошибка выполнения запроса создания таблицы")
			return err
		}
	}
	config.Logger.Info("Таблицы готовы к работе!")
	return nil
}

// FileHash Считает sha256 содержимого файла
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashSeen Проверяет, был ли уже полностью сохранен файл с такой хеш-суммой
func HashSeen(ctx context.Context, pool *pgxpool.Pool, hash string) (bool, error) {
	var found string
	err := pool.QueryRow(ctx, "SELECT grib_hash FROM hashes WHERE grib_hash=$1", hash).Scan(&found)
	switch {
	case err == nil:
		config.Logger.Info("Хеш-запись найдена: ", found)
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		return false, nil
	default:
		return false, err
	}
}

// MarkHash Запоминает хеш-сумму файла, все записи которого сохранены
func MarkHash(ctx context.Context, pool *pgxpool.Pool, hash string) error {
	_, err := pool.Exec(ctx, "INSERT INTO hashes (grib_hash) VALUES ($1) ON CONFLICT DO NOTHING", hash)
	return err
}
