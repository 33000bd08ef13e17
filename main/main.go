// Программа Parser предназначена для чтения файлов формата GRIB2 и записи их в базу данных, либо в json-файлы
//
// Программа использует два типа баз данных в зависимости от предпочтений пользователя,
// есть возможность сохранять в json-файлы полученные сообщения
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"gribdecode.com/config"
	"gribdecode.com/grib2"
)

func main() {
	os.Exit(Parser())
}

// Parser выполняет предварительную подготовку программы и запускает чтение файлов
func Parser() int {
	start := time.Now()
	if err := godotenv.Load(".env"); err != nil {
		config.Logger.Warn("Не найден файл среды, используются переменные окружения")
	}
	cfg := config.New()

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			config.Logger.WithError(err).Error("Ошибка открытия файла лога")
		} else {
			defer file.Close()
			out = file
		}
	}
	if err := config.LoggerStart(out, cfg.LogLevel); err != nil {
		config.Logger.WithError(err).Warn("Неверный уровень логирования, используется info")
	}
	if err := cfg.Validate(); err != nil {
		config.Logger.WithError(err).Error("Ошибка конфигурации")
		return 2
	}
	config.Logger.Info("Старт парсера...")

	files, err := ListFiles(cfg.SrcDir)
	if err != nil {
		config.Logger.WithError(err).Warn("Ошибка чтения директории!")
		return 1
	}
	if len(files) == 0 {
		config.Logger.Info("Новые файлы не обнаружены...")
		return 0
	}
	config.Logger.Info("Файлы найдены: ", len(files))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := grib2.Run(ctx, files, cfg); err != nil {
		config.Logger.WithError(err).Error("Ошибка работы парсера")
		return 1
	}
	if cfg.MoveDir != "" {
		if err := MoveFile(files, cfg.MoveDir); err != nil {
			config.Logger.WithError(err).Error("Ошибка перемещения файлов")
			return 1
		}
	}
	config.Logger.Info("Время выполнения программы: ", time.Since(start))
	return 0
}

// ListFiles Возвращает пути ко всем файлам (не папкам) в директории
func ListFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// MoveFile Перемещает прочитанные файлы в точку сохранения
func MoveFile(files []string, destinationDir string) error {
	if err := os.MkdirAll(destinationDir, 0755); err != nil {
		return err
	}
	for _, path := range files {
		if err := os.Rename(path, filepath.Join(destinationDir, filepath.Base(path))); err != nil {
			return err
		}
	}
	return nil
}
