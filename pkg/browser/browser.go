package browser

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"cdpmock/internal/logger"
	"cdpmock/pkg/model"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/rpcc"
)

// PageFactory 页面创建函数
type PageFactory func(ctx context.Context, b *Browser) (Page, error)

var pageFactory atomic.Pointer[PageFactory]

func init() {
	f := PageFactory(OpenPage)
	pageFactory.Store(&f)
}

// SwapPageFactory 替换进程级页面创建函数，返回被替换的函数
func SwapPageFactory(f PageFactory) PageFactory {
	return *pageFactory.Swap(&f)
}

// CurrentPageFactory 当前进程级页面创建函数
func CurrentPageFactory() PageFactory {
	return *pageFactory.Load()
}

// Browser 浏览器调试端点
type Browser struct {
	devtoolsURL    string
	dt             *devtool.DevTools
	log            logger.Logger
	commandTimeout commandTimeout
}

// Option 浏览器连接选项
type Option func(*Browser)

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(b *Browser) {
		if l != nil {
			b.log = l
		}
	}
}

// WithCommandTimeout 设置单条 CDP 指令超时
func WithCommandTimeout(d time.Duration) Option {
	return func(b *Browser) { b.commandTimeout = commandTimeout(d) }
}

// Connect 连接到浏览器调试端点，例如 http://127.0.0.1:9222
func Connect(ctx context.Context, devtoolsURL string, opts ...Option) (*Browser, error) {
	b := &Browser{
		devtoolsURL:    devtoolsURL,
		dt:             devtool.New(devtoolsURL),
		log:            logger.NewNop(),
		commandTimeout: commandTimeout(5 * time.Second),
	}
	for _, o := range opts {
		o(b)
	}
	if _, err := b.dt.Version(ctx); err != nil {
		return nil, fmt.Errorf("connect devtools %s: %w", devtoolsURL, err)
	}
	b.log.Info("已连接浏览器调试端点", "devtools", devtoolsURL)
	return b, nil
}

// NewPage 通过当前进程级页面创建函数新建页面
func (b *Browser) NewPage(ctx context.Context) (Page, error) {
	return CurrentPageFactory()(ctx, b)
}

// Pages 列出浏览器中的页面目标
func (b *Browser) Pages(ctx context.Context) ([]model.TargetInfo, error) {
	targets, err := b.dt.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.TargetInfo, 0, len(targets))
	for _, t := range targets {
		if t.Type != devtool.Page {
			continue
		}
		out = append(out, model.TargetInfo{
			ID:    model.TargetID(t.ID),
			Type:  string(t.Type),
			URL:   t.URL,
			Title: t.Title,
		})
	}
	return out, nil
}

// OpenPage 原生页面创建：新建目标并建立调试连接
func OpenPage(ctx context.Context, b *Browser) (Page, error) {
	if b == nil {
		return nil, fmt.Errorf("browser: not connected")
	}
	target, err := b.dt.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("create target: %w", err)
	}
	conn, err := rpcc.DialContext(ctx, target.WebSocketDebuggerURL)
	if err != nil {
		_ = b.dt.Close(context.Background(), target)
		return nil, fmt.Errorf("dial target %s: %w", target.ID, err)
	}
	client := cdp.NewClient(conn)
	if err := client.Page.Enable(ctx); err != nil {
		conn.Close()
		_ = b.dt.Close(context.Background(), target)
		return nil, fmt.Errorf("enable page domain: %w", err)
	}
	p := newCDPPage(b, target, conn, client)
	b.log.Debug("新建页面", "target", target.ID)
	return p, nil
}

type commandTimeout time.Duration

func (t commandTimeout) apply(ctx context.Context) (context.Context, context.CancelFunc) {
	if t <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(t))
}
