package grib2

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"

	"gribdecode.com/config"
)

// sendAttempts Количество попыток отправки пачки в ClickHouse
const sendAttempts = 10

// chunk нарезает большой массив данных на более маленькие для лучшей отправки и доступа к данным из БД
func chunk[T any](slice []T, size int) [][]T {
	var chunks [][]T
	for i := 0; i < len(slice); i += size {
		end := i + size
		if end > len(slice) {
			end = len(slice)
		}
		chunks = append(chunks, slice[i:end])
	}
	return chunks
}

// int32s Приводит целые значения к типу колонки Int32
func int32s(values []int) []int32 {
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v)
	}
	return out
}

// gridTable Таблица свойств сетки, парная таблице данных
func gridTable(dataTable string) string {
	if dataTable == "grib_data_buff" {
		return "grid_buff"
	}
	return "grid"
}

// chRow Строка таблицы данных: один чанк массивов записи
type chRow struct {
	id      uuid.UUID
	data    []float64
	dataInt []int32
	offset  int32
}

// sendBatch Отправляет строки, готовя новую пачку на каждую попытку: драйвер
// не отправляет пачку повторно после ошибки. Возвращает первую ошибку.
func sendBatch(ctx context.Context, conn driver.Conn, q string, rows []chRow) error {
	var first error
	for i := 0; i < sendAttempts; i++ {
		err := sendOnce(ctx, conn, q, rows)
		if err == nil {
			config.Logger.Info("Отправлено строк: ", len(rows))
			return nil
		}
		if first == nil {
			first = err
		}
		config.Logger.WithError(err).Warnf("Ошибка отправки пачки, попытка %d", i+1)
		if ctx.Err() != nil {
			break
		}
	}
	return fmt.Errorf("отправка %d строк: %w", len(rows), first)
}

func sendOnce(ctx context.Context, conn driver.Conn, q string, rows []chRow) error {
	batch, err := conn.PrepareBatch(ctx, q)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := batch.Append(r.id, r.data, r.dataInt, r.offset); err != nil {
			_ = batch.Abort()
			return err
		}
	}
	return batch.Send()
}

// ExportBatch формирует пачки по batchSize строк и отправляет их в ClickHouse по готовности.
// Массивы данных каждой записи нарезаются на чанки по chunkSize значений.
func ExportBatch(ctx context.Context, conn driver.Conn, table string, chunkSize, batchSize int, records <-chan *Record) error {
	q := fmt.Sprintf("INSERT INTO %s", table)
	qGrid := fmt.Sprintf("INSERT INTO %s (id, grib_datetime, valid_time, forecast_time, parameter, surface_type, surface_value, grid) VALUES(?,?,?,?,?,?,?,?)", gridTable(table))

	rows := make([]chRow, 0, batchSize)
	for rec := range records {
		chunkFloat := chunk(rec.Data, chunkSize)
		chunkInt := chunk(int32s(rec.DataInt), chunkSize)
		if len(chunkFloat) != len(chunkInt) {
			return fmt.Errorf("record %s: %d float chunks, %d int chunks", rec.UUID, len(chunkFloat), len(chunkInt))
		}
		grid, err := json.Marshal(rec.Grid)
		if err != nil {
			return err
		}
		if err := conn.Exec(ctx, qGrid,
			rec.UUID,
			rec.Date,
			rec.ValidTime,
			rec.ForecastTime,
			rec.Param,
			rec.SurfaceType,
			rec.SurfaceValue,
			string(grid),
		); err != nil {
			return err
		}
		for i := range chunkFloat {
			rows = append(rows, chRow{id: rec.UUID, data: chunkFloat[i], dataInt: chunkInt[i], offset: int32(i * chunkSize)})
		}
		if len(rows) >= batchSize {
			if err := sendBatch(ctx, conn, q, rows); err != nil {
				return err
			}
			rows = rows[:0]
		}
	}
	config.Logger.Info("Канал закрыт!")
	if len(rows) == 0 {
		return nil
	}
	return sendBatch(ctx, conn, q, rows)
}
