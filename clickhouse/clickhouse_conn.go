// Пакет для получения соединения с clickhouse и создания необходимых таблиц
//
// Создает соединение с ClickHouse по указанному в .env-файле адресу и порту,
// с заданным пользователем и к необходимой базе данных.
// Создает таблицы для заполнения их данными
package clickhouse

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/sirupsen/logrus"

	"gribdecode.com/config"
)

// Options Собирает параметры подключения из конфигурации
func Options(cfg *config.Config) *clickhouse.Options {
	return &clickhouse.Options{
		Addr: []string{net.JoinHostPort(cfg.CHHost, cfg.CHPort)},
		Auth: clickhouse.Auth{
			Database: cfg.CHBase,
			Username: cfg.CHUser,
			Password: cfg.CHPass,
		},
		// Отладочная информация драйвера пишется в общий логер на уровне debug
		Debug: config.Logger.IsLevelEnabled(logrus.DebugLevel),
		Debugf: func(format string, v ...any) {
			config.Logger.WithField("component", "clickhouse").Debugf(format, v...)
		},
		Settings: clickhouse.Settings{
			// Увеличивает допустимое время выполнения запроса
			"max_execution_time": 1200,
		},
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
		DialTimeout:          time.Second * 30,
		MaxOpenConns:         100,
		MaxIdleConns:         5,
		ConnMaxLifetime:      30 * time.Minute,
		ConnOpenStrategy:     clickhouse.ConnOpenInOrder,
		BlockBufferSize:      255,
		MaxCompressionBuffer: 10485760,
	}
}

// GetConn Создает и проверяет соединение с clickhouse
func GetConn(ctx context.Context, cfg *config.Config) (driver.Conn, error) {
	conn, err := clickhouse.Open(Options(cfg))
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// Суффиксы таблиц: основной срез, буфер на время смены среза, предыдущий срез
var tableSuffixes = []string{"", "_buff", "_prev"}

// dataTable Таблица с нарезанными массивами значений
const dataTable = `CREATE TABLE IF NOT EXISTS grib_data%s
(
	id UUID,
	grib_data Array(Float64),
	grib_data_int Array(Int32),
	data_index Int32
)
ENGINE = MergeTree
ORDER BY (id, data_index)
SETTINGS index_granularity = 8192`

// gridTable Таблица со свойствами поля и описанием сетки
const gridTable = `CREATE TABLE IF NOT EXISTS grid%s
(
	id UUID,
	grib_datetime DateTime,
	valid_time DateTime,
	forecast_time Int64,
	parameter String,
	surface_type String,
	surface_value String,
	grid String
)
ENGINE = MergeTree
ORDER BY (surface_value, parameter)
SETTINGS index_granularity = 8192`

// viewTable Представление для выборки данных по индексу
const viewTable = `CREATE MATERIALIZED VIEW IF NOT EXISTS view%s
(
	id UUID,
	grib_data Array(Float64),
	data_index Int32
)
ENGINE = MergeTree
ORDER BY (data_index, id)
AS SELECT id, grib_data, data_index
FROM grib_data%s`

const fileTable = `CREATE TABLE IF NOT EXISTS file_name
(
	file_name String
)
ENGINE = MergeTree()
ORDER BY file_name`

// Schema Возвращает запросы на создание всех таблиц в порядке выполнения
func Schema() []string {
	var qs []string
	for _, s := range tableSuffixes {
		view := s
		if view == "" {
			view = "_data"
		}
		qs = append(qs,
			fmt.Sprintf(dataTable, s),
			fmt.Sprintf(viewTable, view, s),
			fmt.Sprintf(gridTable, s),
		)
	}
	return append(qs, fileTable)
}

// CheckTable Проверяет, существуют ли необходимые таблицы, и, если не существуют, создает их
func CheckTable(ctx context.Context, conn driver.Conn) error {
	for _, q := range Schema() {
		if err := conn.Exec(ctx, q); err != nil {
			return fmt.Errorf("clickhouse schema: %w", err)
		}
	}
	config.Logger.Info("Таблицы clickhouse готовы к работе!")
	return nil
}

// FileSeen Проверяет, был ли уже полностью сохранен файл с таким именем
func FileSeen(ctx context.Context, conn driver.Conn, name string) (bool, error) {
	var count uint64
	if err := conn.QueryRow(ctx, "SELECT COUNT() FROM file_name WHERE file_name = ?", name).Scan(&count); err != nil {
		return false, err
	}
	return count != 0, nil
}

// MarkFile Запоминает имя файла, все записи которого сохранены
func MarkFile(ctx context.Context, conn driver.Conn, name string) error {
	return conn.Exec(ctx, "INSERT INTO file_name(file_name) VALUES(?)", name)
}
