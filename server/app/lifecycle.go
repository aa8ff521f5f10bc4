package app

import "context"

// Component 是可啟動 / 可關閉的長生命週期元件。
//   - Run 阻塞直到元件停止；正常停止回傳 nil。
//   - Shutdown 要求優雅關閉，需尊重 ctx 期限。
type Component interface {
	Run() error
	Shutdown(ctx context.Context) error
}
