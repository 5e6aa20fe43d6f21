package model

// TargetID 浏览器页面目标ID
type TargetID string

// TargetInfo 页面目标信息
type TargetInfo struct {
	ID    TargetID `json:"id"`
	Type  string   `json:"type"`
	URL   string   `json:"url"`
	Title string   `json:"title"`
}

// 诊断事件类型
const (
	EventPageBridged   = "page_bridged"
	EventRelayed       = "relayed"
	EventRelayFailed   = "relay_failed"
	EventRespondFailed = "respond_failed"
)

// Event 转发诊断事件，通过旁路通道发送，不影响页面请求流程
type Event struct {
	Type       string   `json:"type"`
	Target     TargetID `json:"target,omitempty"`
	TraceID    string   `json:"traceId,omitempty"`
	URL        string   `json:"url,omitempty"`
	Method     string   `json:"method,omitempty"`
	StatusCode int      `json:"statusCode,omitempty"`
	Error      string   `json:"error,omitempty"`
	DurationMS int64    `json:"durationMS"`
	Timestamp  int64    `json:"timestamp"`
}
