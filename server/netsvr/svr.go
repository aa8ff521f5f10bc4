package netsvr

import (
	"net/http"

	"github.com/zintix-labs/crashlab/server/app"
)

// NetSvr 是「路由 + 服務啟停」的組合，只交給最外層（server.Run）使用。
// 本身即為 app.Component，可直接交給 app.App 管理生命週期。
type NetSvr interface {
	NetRouter
	app.Component
	http.Handler
}

// NetRouter 只有路由行為；handler 與子模組拿到的都是它，碰不到 Run / Shutdown。
type NetRouter interface {
	Use(middleware func(http.Handler) http.Handler)

	Get(path string, h http.HandlerFunc)
	Post(path string, h http.HandlerFunc)
	Put(path string, h http.HandlerFunc)
	Delete(path string, h http.HandlerFunc)

	// Handle 掛載任意 http.Handler（所有 method），例如 /metrics。
	Handle(path string, h http.Handler)

	Group(path string, fn func(NetRouter))
	// With 回傳套上額外 middleware 的 inline router，不產生新的路徑前綴。
	With(middleware ...func(http.Handler) http.Handler) NetRouter
}
