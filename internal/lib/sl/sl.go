// Package sl содержит атрибуты slog, общие для всех сервисов.
package sl

import (
	"io"
	"log/slog"
)

// Err возвращает атрибут "error" с текстом ошибки. Для nil пишет пустое значение.
//
//	log.Error("failed to establish session", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// Op атрибут с именем операции.
func Op(op string) slog.Attr {
	return slog.String("op", op)
}

// Account атрибут с идентификатором аккаунта.
func Account(id int64) slog.Attr {
	return slog.Int64("account_id", id)
}

// NewLogger создаёт текстовый логгер процесса. Для prod уровень info, иначе debug.
func NewLogger(env string, w io.Writer) *slog.Logger {
	level := slog.LevelDebug
	if env == "prod" {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
