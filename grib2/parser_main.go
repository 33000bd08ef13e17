package grib2

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	ch "gribdecode.com/clickhouse"
	"gribdecode.com/config"
	"gribdecode.com/database"
)

// Pipeline Читает файлы, расшифровывает сообщения и передает их в выбранное хранилище
type Pipeline struct {
	Cfg  *config.Config
	Pool *pgxpool.Pool // для SAVE_AS=database
	CH   driver.Conn   // для SAVE_AS=clickhouse

	// Now Текущее время для выбора таблицы; по умолчанию time.Now
	Now func() time.Time
}

// Run Открывает соединения, нужные для выбранного способа сохранения, и обрабатывает файлы
func Run(ctx context.Context, files []string, cfg *config.Config) error {
	p := &Pipeline{Cfg: cfg}
	switch cfg.SaveAs {
	case config.SaveDatabase:
		config.Logger.Info("Запуск соединения с базой данных...")
		pool, err := database.Create(ctx, cfg)
		if err != nil {
			return err
		}
		defer pool.Close()
		p.Pool = pool
	case config.SaveClickHouse:
		conn, err := ch.GetConn(ctx, cfg)
		if err != nil {
			return err
		}
		defer conn.Close()
		if err := ch.CheckTable(ctx, conn); err != nil {
			return err
		}
		p.CH = conn
	}
	return p.Run(ctx, files)
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// sinks Запускает потоки сохранения
func (p *Pipeline) sinks(ctx context.Context, g *errgroup.Group, records <-chan *Record, messages <-chan *Message) error {
	cfg := p.Cfg
	table := TableForHour(p.now().Hour())
	batch, err := cfg.Batch()
	if err != nil {
		return err
	}
	chunkSize, err := cfg.Chunk()
	if err != nil {
		return err
	}
	switch cfg.SaveAs {
	case config.SaveDatabase:
		g.Go(func() error { return SaveDB(ctx, p.Pool, table, batch, records) })
	case config.SaveClickHouse:
		g.Go(func() error { return ExportBatch(ctx, p.CH, table, chunkSize, batch, records) })
	case config.SaveJSON:
		config.Logger.Info("Поток сохранения в JSON стартовал!")
		g.Go(func() error { return SaveJson(cfg.SaveDir, records) })
	case config.SaveJSONSections:
		config.Logger.Info("Поток сохранения в JSON по секциям стартовал!")
		g.Go(func() error { return SaveMessage(cfg.SaveDir, messages) })
	default:
		return fmt.Errorf("неизвестный тип сохранения %q", cfg.SaveAs)
	}
	return nil
}

// Run Обрабатывает файлы: COUNT_FILE_PER_TICK файлов одновременно, сообщения
// внутри файла расшифровываются в WORKERS потоков
func (p *Pipeline) Run(ctx context.Context, files []string) error {
	cfg := p.Cfg
	parsers, err := cfg.Parsers()
	if err != nil {
		return err
	}
	workers, err := cfg.DecodeWorkers()
	if err != nil {
		return err
	}
	missing, err := cfg.Missing()
	if err != nil {
		return err
	}

	records := make(chan *Record, 10)
	messages := make(chan *Message, 20)

	sinkGroup, sinkCtx := errgroup.WithContext(ctx)
	if err := p.sinks(sinkCtx, sinkGroup, records, messages); err != nil {
		return err
	}

	// processed Ключи файлов, все сообщения которых переданы в сохранение
	var (
		mu        sync.Mutex
		processed []string
	)
	parseGroup, parseCtx := errgroup.WithContext(sinkCtx)
	parseGroup.SetLimit(parsers)
	for _, path := range files {
		parseGroup.Go(func() error {
			key, err := p.parseFile(parseCtx, path, workers, missing, records, messages)
			if err != nil || key == "" {
				return err
			}
			mu.Lock()
			processed = append(processed, key)
			mu.Unlock()
			return nil
		})
	}
	parseErr := parseGroup.Wait()
	close(records)
	close(messages)
	sinkErr := sinkGroup.Wait()
	if parseErr != nil {
		config.Logger.WithError(parseErr).Error("Ошибка при обработке файлов!")
		return parseErr
	}
	if sinkErr != nil {
		config.Logger.WithError(sinkErr).Error("Ошибка при сохранении файлов!")
		return sinkErr
	}
	// файлы запоминаются только после успешного сохранения всех записей
	for _, key := range processed {
		if err := p.mark(ctx, key); err != nil {
			config.Logger.WithError(err).Error("Ошибка при записи обработанного файла!")
			return err
		}
	}
	config.Logger.Info("Обработка файлов завершена")
	return nil
}

// fileKey Ключ файла для проверки повторной обработки: хеш-сумма для
// PostgreSQL, имя файла для ClickHouse
func (p *Pipeline) fileKey(path string) (string, error) {
	switch p.Cfg.SaveAs {
	case config.SaveDatabase:
		return database.FileHash(path)
	case config.SaveClickHouse:
		return filepath.Base(path), nil
	}
	return "", nil
}

// seen Проверяет, был ли файл уже записан в базу
func (p *Pipeline) seen(ctx context.Context, key string) (bool, error) {
	switch p.Cfg.SaveAs {
	case config.SaveDatabase:
		return database.HashSeen(ctx, p.Pool, key)
	case config.SaveClickHouse:
		return ch.FileSeen(ctx, p.CH, key)
	}
	return false, nil
}

// mark Запоминает полностью сохраненный файл
func (p *Pipeline) mark(ctx context.Context, key string) error {
	switch p.Cfg.SaveAs {
	case config.SaveDatabase:
		return database.MarkHash(ctx, p.Pool, key)
	case config.SaveClickHouse:
		return ch.MarkFile(ctx, p.CH, key)
	}
	return nil
}

// parseFile Читает один файл и отправляет расшифрованные сообщения в каналы.
// Сообщения с ошибками пропускаются. Возвращает ключ файла, который нужно
// запомнить после сохранения; пустой ключ, если запоминать нечего.
func (p *Pipeline) parseFile(ctx context.Context, path string, workers int, missing float64, records chan<- *Record, messages chan<- *Message) (string, error) {
	log := config.Logger.WithField("file", path)
	key, err := p.fileKey(path)
	if err != nil {
		log.WithError(err).Warn("Ошибка при открытии файла")
		return "", err
	}
	if key != "" {
		dup, err := p.seen(ctx, key)
		if err != nil {
			log.WithError(err).Warn("Ошибка проверки файла")
			return "", err
		}
		if dup {
			log.Info("Файл уже обработан, пропуск")
			return "", nil
		}
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		log.WithError(err).Warn("Ошибка при открытии файла")
		return "", err
	}
	log.Info("Парсер стартовал...")
	results, err := DecodeAll(ctx, buf, workers, WithMissing(missing))
	if err != nil {
		return "", err
	}
	decoded, failed := 0, 0
	for _, res := range results {
		if res.Err != nil {
			failed++
			log.WithError(res.Err).WithField("offset", res.Offset).Warn("Сообщение пропущено")
			continue
		}
		for _, m := range res.Messages {
			if err := p.emit(ctx, m, records, messages); err != nil {
				if ctx.Err() != nil {
					return "", err
				}
				failed++
				log.WithError(err).WithField("offset", m.Offset).Warn("Сообщение пропущено")
				continue
			}
			decoded++
		}
	}
	log.WithField("decoded", decoded).WithField("failed", failed).Info("Чтение файла завершено")
	return key, nil
}

func (p *Pipeline) emit(ctx context.Context, m *Message, records chan<- *Record, messages chan<- *Message) error {
	if p.Cfg.SaveAs == config.SaveJSONSections {
		select {
		case messages <- m:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	rec, err := NewRecord(m)
	if err != nil {
		return err
	}
	select {
	case records <- rec:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
