package ctxkeys

// TraceIDKey 单次转发请求的追踪ID
type TraceIDKey struct{}

// RelayHeadersKey 需要原样写出的请求头（traffic.Header）
type RelayHeadersKey struct{}
