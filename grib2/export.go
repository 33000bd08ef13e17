package grib2

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"gribdecode.com/config"
)

// TableForHour Выбирает таблицу для записи: во время смены среза (00 и 12 часов)
// данные пишутся в буферную таблицу
func TableForHour(hour int) string {
	if hour == 0 || hour == 12 {
		return "grib_data_buff"
	}
	return "grib_data"
}

// safeName Убирает из имени файла символы, недопустимые в пути
func safeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}

func timeDir(t time.Time) string {
	return t.UTC().Format("2006-01-02_15_04_05")
}

// writeJSON Создает папку и записывает в нее json-файл
func writeJSON(dir, name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		config.Logger.WithError(err).Error("Ошибка формирования json")
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		config.Logger.WithError(err).Error("Ошибка создания директории")
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, safeName(name)+".json"), data, 0644); err != nil {
		config.Logger.WithError(err).Error("Ошибка записи файла")
		return err
	}
	return nil
}

// SaveMessage Сохраняет расшифрованные сообщения в формате json по секциям
func SaveMessage(savePath string, messages <-chan *Message) error {
	for ms := range messages {
		valid, err := ms.ValidTime()
		if err != nil {
			return err
		}
		param := ms.Parameter()
		level, value := ms.Level()
		dir := filepath.Join(savePath, timeDir(ms.ReferenceTime()), timeDir(valid))
		name := fmt.Sprintf("%s_%s_%g_%d_%d", param.Abbreviation, level.Name, value, ms.Offset, ms.Field)
		if err := writeJSON(dir, name, ms); err != nil {
			return err
		}
	}
	config.Logger.Info("Канал закрыт, сохранение завершено!")
	return nil
}

// SaveJson Сохраняет записи в формате json по структуре базы данных
func SaveJson(savePath string, records <-chan *Record) error {
	for rec := range records {
		dir := filepath.Join(savePath, timeDir(rec.Date), fmt.Sprint(rec.ForecastTime))
		name := rec.Param + "_" + rec.SurfaceType + "_" + rec.SurfaceValue + "_" + rec.UUID.String()
		if err := writeJSON(dir, name, rec); err != nil {
			return err
		}
	}
	config.Logger.Info("Канал закрыт, сохранение завершено!")
	return nil
}

// recordColumns Колонки таблиц grib_data и grib_data_buff
var recordColumns = []string{"id", "grib_datetime", "valid_time", "forecast_time", "parameter", "surface_type", "surface_value", "grid_properties", "grib_data", "grib_data_int"}

// RecordCopySource Источник для потоковой записи в PostgreSQL через COPY.
// Читает не больше Limit записей из канала, после чего Next возвращает false.
type RecordCopySource struct {
	ctx     context.Context
	records <-chan *Record
	limit   int
	read    int
	value   *Record
	closed  bool
	err     error
}

func newRecordCopySource(ctx context.Context, records <-chan *Record, limit int) *RecordCopySource {
	return &RecordCopySource{ctx: ctx, records: records, limit: limit}
}

// Next Получает следующую запись из канала
func (s *RecordCopySource) Next() bool {
	if s.closed || (s.limit > 0 && s.read >= s.limit) {
		return false
	}
	select {
	case rec, ok := <-s.records:
		if !ok {
			s.closed = true
			return false
		}
		s.value = rec
		s.read++
		return true
	case <-s.ctx.Done():
		s.err = s.ctx.Err()
		return false
	}
}

// Values Возвращает значения текущей записи в порядке recordColumns
func (s *RecordCopySource) Values() ([]any, error) {
	r := s.value
	grid, err := json.Marshal(r.Grid)
	if err != nil {
		return nil, err
	}
	return []any{r.UUID, r.Date, r.ValidTime, r.ForecastTime, r.Param, r.SurfaceType, r.SurfaceValue, string(grid), r.Data, r.DataInt}, nil
}

// Err Возвращает ошибку чтения из канала
func (s *RecordCopySource) Err() error { return s.err }

// SaveDB Сохраняет записи в PostgreSQL пачками по batch записей
func SaveDB(ctx context.Context, pool *pgxpool.Pool, table string, batch int, records <-chan *Record) error {
	for {
		src := newRecordCopySource(ctx, records, batch)
		n, err := pool.CopyFrom(ctx, pgx.Identifier{table}, recordColumns, src)
		if err != nil {
			config.Logger.WithError(err).WithField("table", table).Error("Ошибка записи в БД")
			return err
		}
		if n > 0 {
			config.Logger.WithField("table", table).Debugf("Записано строк: %d", n)
		}
		if src.closed {
			config.Logger.Info("Канал закрыт, завершение операции сохранения!")
			return nil
		}
	}
}
