// Package middleware 提供了 HTTP 請求處理的中間件。
//
// 包含 JWT 驗證、以 client IP 為單位的固定窗口限流、
// websocket 來源檢查與安全標頭。
package middleware
