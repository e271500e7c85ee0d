// Package smtp подключает к SMTP серверу для отправки почты.
package smtp

import (
	"context"
	"io"
)

// Client — часть *smtp.Client, нужная для отправки одного письма.
type Client interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// Connector открывает сессию с сервером и знает адрес отправителя.
type Connector interface {
	Connect(ctx context.Context) (Client, error)
	From() string
}
