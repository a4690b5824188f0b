// Package httputil writes JSON responses and maps service errors to status
// codes, so every handler reports validation, ownership and upstream
// failures the same way.
package httputil
