package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"cdpmock/internal/ctxkeys"
	"cdpmock/internal/logger"
	"cdpmock/internal/metrics"
	"cdpmock/pkg/browser"
	"cdpmock/pkg/model"
	"cdpmock/pkg/traffic"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// FailureStatus 转发在传输层失败时中止页面请求使用的状态码
const FailureStatus = http.StatusInternalServerError

// ErrUnsupportedScheme 只转发 http/https
var ErrUnsupportedScheme = errors.New("relay: unsupported url scheme")

// TransportError 转发请求在传输层失败（连接、DNS、超时等）
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("relay %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Config 转发器配置
type Config struct {
	// HTTPClient 为空时使用委托 http.DefaultTransport 的客户端
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     logger.Logger
	Metrics    *metrics.Metrics
	Events     chan<- model.Event
}

// Bridge 请求转发器：把页面请求改由通用 HTTP 客户端发出，再把响应回填给页面
type Bridge struct {
	client  *resty.Client
	log     logger.Logger
	metrics *metrics.Metrics
	events  chan<- model.Event
}

// New 创建转发器
func New(cfg Config) *Bridge {
	l := cfg.Logger
	if l == nil {
		l = logger.NewNop()
	}
	rc := resty.NewWithClient(newHTTPClient(cfg.HTTPClient)).
		SetLogger(NewRestyLogger(l)).
		SetAllowGetMethodPayload(true).
		SetDoNotParseResponse(true).
		SetPreRequestHook(forwardHeaders)
	if cfg.Timeout > 0 {
		rc.SetTimeout(cfg.Timeout)
	}
	return &Bridge{
		client:  rc,
		log:     l,
		metrics: cfg.Metrics,
		events:  cfg.Events,
	}
}

// DefaultTransport 在每次调用时委托给 http.DefaultTransport，激活后替换的全局传输层同样生效
type DefaultTransport struct{}

func (DefaultTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	return http.DefaultTransport.RoundTrip(r)
}

// newHTTPClient 复制调用方客户端；重定向交还页面处理，Cookie 由浏览器自己携带
func newHTTPClient(src *http.Client) *http.Client {
	hc := &http.Client{}
	if src != nil {
		*hc = *src
	}
	if hc.Transport == nil {
		hc.Transport = DefaultTransport{}
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	hc.Jar = nil
	return hc
}

// forwardHeaders 用浏览器原始头部替换 resty 生成的头部，不做规范化
func forwardHeaders(_ *resty.Client, r *http.Request) error {
	h, ok := r.Context().Value(ctxkeys.RelayHeadersKey{}).(traffic.Header)
	if !ok {
		return nil
	}
	out := make(http.Header, len(h))
	for _, e := range h {
		if strings.EqualFold(e.Name, "Host") {
			r.Host = e.Value
			continue
		}
		out[e.Name] = append(out[e.Name], e.Value)
	}
	r.Header = out
	return nil
}

// Handler 绑定目标页面的请求回调
func (b *Bridge) Handler(target model.TargetID) browser.RequestHandler {
	return func(ctx context.Context, req browser.Request) {
		b.Handle(ctx, target, req)
	}
}

// Handle 转发单个请求并执行且仅执行一次终结动作
func (b *Bridge) Handle(ctx context.Context, target model.TargetID, req browser.Request) {
	traceID := uuid.NewString()
	ctx = context.WithValue(ctx, ctxkeys.TraceIDKey{}, traceID)
	start := time.Now()
	l := b.log.With("traceId", traceID, "target", string(target), "method", req.Method(), "url", req.URL(),
		"resourceType", req.ResourceType())
	evt := model.Event{
		Target:  target,
		TraceID: traceID,
		URL:     req.URL(),
		Method:  req.Method(),
	}

	res, err := b.Relay(ctx, req)
	if err != nil {
		l.Err(err, "转发请求失败，中止页面请求", "status", FailureStatus)
		if aerr := req.Abort(ctx, FailureStatus); aerr != nil {
			l.Err(aerr, "中止页面请求失败")
		}
		evt.Type, evt.Error = model.EventRelayFailed, err.Error()
		b.finish(evt, metrics.OutcomeFailed, start)
		return
	}

	evt.StatusCode = res.StatusCode
	if err := req.Respond(ctx, res); err != nil {
		l.Err(err, "回填响应失败", "status", res.StatusCode)
		evt.Type, evt.Error = model.EventRespondFailed, err.Error()
		b.finish(evt, metrics.OutcomeRespondFailed, start)
		return
	}
	l.Debug("请求转发完成", "status", res.StatusCode, "bytes", len(res.Body), "duration", time.Since(start))
	evt.Type = model.EventRelayed
	b.finish(evt, metrics.OutcomeRelayed, start)
}

// Relay 通过 HTTP 客户端发出等价请求，读取完整响应体
func (b *Bridge) Relay(ctx context.Context, req browser.Request) (*traffic.Response, error) {
	method, rawURL := req.Method(), req.URL()
	fail := func(err error) (*traffic.Response, error) {
		return nil, &TransportError{Method: method, URL: rawURL, Err: err}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fail(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fail(fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme))
	}
	u.Fragment, u.RawFragment = "", ""

	r := b.client.R().SetContext(context.WithValue(ctx, ctxkeys.RelayHeadersKey{}, req.Headers()))
	if body, ok := req.PostData(); ok && len(body) > 0 {
		r.SetBody(body)
	}

	resp, err := r.Execute(method, u.String())
	if err != nil {
		if resp != nil && resp.RawBody() != nil {
			resp.RawBody().Close()
		}
		return fail(err)
	}
	raw := resp.RawBody()
	if raw == nil {
		return fail(errors.New("empty response"))
	}
	defer raw.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, raw); err != nil {
		return fail(err)
	}
	return &traffic.Response{
		StatusCode: resp.StatusCode(),
		Headers:    traffic.FromHTTP(resp.Header()),
		Body:       buf.Bytes(),
	}, nil
}

func (b *Bridge) finish(evt model.Event, outcome string, start time.Time) {
	d := time.Since(start)
	b.metrics.ObserveRelay(evt.Method, outcome, d)
	evt.DurationMS = d.Milliseconds()
	b.emit(evt)
}

// emit 非阻塞发送诊断事件，自动添加时间戳
func (b *Bridge) emit(evt model.Event) {
	if b.events == nil {
		return
	}
	evt.Timestamp = time.Now().UnixMilli()
	select {
	case b.events <- evt:
	default:
	}
}
