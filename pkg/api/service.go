// Package api 对外暴露请求转发的激活与停用
package api

import (
	"net/http"
	"sync"
	"time"

	"cdpmock/internal/activation"
	"cdpmock/internal/config"
	"cdpmock/internal/logger"
	"cdpmock/internal/metrics"
	"cdpmock/internal/relay"
	"cdpmock/internal/session"
	"cdpmock/pkg/browser"
	"cdpmock/pkg/model"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ErrAlreadyActive 重复激活
	ErrAlreadyActive = activation.ErrAlreadyActive
	// ErrNotActive 未激活时停用
	ErrNotActive = activation.ErrNotActive
)

// Service 服务接口
type Service interface {
	// Activate 激活后新建的页面都会经由 HTTP 客户端转发请求
	Activate(opts ...Option) error

	// Deactivate 恢复原生页面创建，已转发的页面不受影响
	Deactivate() error

	// IsActive 是否已激活
	IsActive() bool

	// BridgedPages 列出仍处于打开状态的转发页面
	BridgedPages() []model.TargetID
}

// Option 激活选项
type Option func(*options)

type options struct {
	httpClient *http.Client
	timeout    time.Duration
	logger     logger.Logger
	events     chan<- model.Event
	registerer prometheus.Registerer
	cfg        *config.Config
}

// WithHTTPClient 指定转发使用的 HTTP 客户端，其 Transport 为空时委托 http.DefaultTransport
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout 转发请求超时，覆盖配置中的 relay.timeoutMS
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger 设置日志，缺省按配置创建
func WithLogger(l logger.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEvents 订阅诊断事件，通道满时丢弃
func WithEvents(ch chan<- model.Event) Option {
	return func(o *options) { o.events = ch }
}

// WithRegisterer 指标注册位置，缺省为 prometheus.DefaultRegisterer
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) { o.registerer = r }
}

// WithConfig 使用给定配置，缺省从 CDPMOCK_* 环境变量加载
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

type service struct {
	ctl   *activation.Controller
	pages *session.Manager
}

var (
	defaultOnce sync.Once
	defaultSvc  *service
)

// Default 进程级单例
func Default() Service {
	defaultOnce.Do(func() {
		defaultSvc = &service{
			ctl:   activation.New(nil),
			pages: session.NewManager(nil, nil),
		}
	})
	return defaultSvc
}

// Activate 激活进程级请求转发
func Activate(opts ...Option) error { return Default().Activate(opts...) }

// Deactivate 停用进程级请求转发
func Deactivate() error { return Default().Deactivate() }

// IsActive 进程级请求转发是否已激活
func IsActive() bool { return Default().IsActive() }

// BridgedPages 仍处于打开状态的转发页面
func BridgedPages() []model.TargetID { return Default().BridgedPages() }

func (s *service) Activate(opts ...Option) error {
	if s.ctl.IsActive() {
		return ErrAlreadyActive
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.cfg
	if cfg == nil {
		var err error
		if cfg, err = config.Load(""); err != nil {
			return err
		}
	}
	l := o.logger
	if l == nil {
		l = logger.New(cfg.LoggerOptions())
	}
	timeout := o.timeout
	if timeout == 0 {
		timeout = cfg.RelayTimeout()
	}
	reg := o.registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := metrics.New(reg)

	bridge := relay.New(relay.Config{
		HTTPClient: o.httpClient,
		Timeout:    timeout,
		Logger:     l,
		Metrics:    m,
		Events:     o.events,
	})
	return s.ctl.Activate(func(orig browser.PageFactory) browser.PageFactory {
		s.pages.Use(l, m)
		return relay.WrapPageFactory(orig, bridge, s.pages)
	})
}

func (s *service) Deactivate() error {
	return s.ctl.Deactivate()
}

func (s *service) IsActive() bool {
	return s.ctl.IsActive()
}

func (s *service) BridgedPages() []model.TargetID {
	return s.pages.List()
}
