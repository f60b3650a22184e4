// Package api 組裝 HTTP 路由。
//
// 這個包把認證、聚會、房間查詢與 websocket 端點掛到 gin 上，
// 並依設定替各群組加上限流與 JWT 中間件。
package api
