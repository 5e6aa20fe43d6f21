package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"cdpmock/internal/logger"
	"cdpmock/pkg/model"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/devtool"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/page"
	"github.com/mafredri/cdp/protocol/runtime"
	"github.com/mafredri/cdp/rpcc"
	"github.com/tidwall/gjson"
)

// ErrHandlerRegistered 页面已注册过请求拦截回调
var ErrHandlerRegistered = errors.New("browser: request handler already registered")

// Page 浏览器页面句柄
type Page interface {
	ID() model.TargetID
	Navigate(ctx context.Context, url string) error
	Content(ctx context.Context) (string, error)
	SetRequestInterception(ctx context.Context, enabled bool) error
	OnRequest(h RequestHandler) error
	Done() <-chan struct{}
	Close(ctx context.Context) error
}

type cdpPage struct {
	browser *Browser
	target  *devtool.Target
	conn    *rpcc.Conn
	client  *cdp.Client
	log     logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	handler   RequestHandler
	closeOnce sync.Once
}

func newCDPPage(b *Browser, target *devtool.Target, conn *rpcc.Conn, client *cdp.Client) *cdpPage {
	ctx, cancel := context.WithCancel(context.Background())
	return &cdpPage{
		browser: b,
		target:  target,
		conn:    conn,
		client:  client,
		log:     b.log.With("target", target.ID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (p *cdpPage) ID() model.TargetID { return model.TargetID(p.target.ID) }

func (p *cdpPage) Done() <-chan struct{} { return p.ctx.Done() }

// Navigate 导航并等待 load 事件
func (p *cdpPage) Navigate(ctx context.Context, url string) error {
	loaded, err := p.client.Page.LoadEventFired(ctx)
	if err != nil {
		return err
	}
	defer loaded.Close()

	reply, err := p.client.Page.Navigate(ctx, page.NewNavigateArgs(url))
	if err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if reply.ErrorText != nil && *reply.ErrorText != "" {
		return fmt.Errorf("navigate %s: %s", url, *reply.ErrorText)
	}
	if _, err := loaded.Recv(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// Content 返回当前文档的完整 HTML
func (p *cdpPage) Content(ctx context.Context) (string, error) {
	args := runtime.NewEvaluateArgs("document.documentElement.outerHTML").SetReturnByValue(true)
	reply, err := p.client.Runtime.Evaluate(ctx, args)
	if err != nil {
		return "", err
	}
	if reply.ExceptionDetails != nil {
		return "", fmt.Errorf("evaluate content: %s", reply.ExceptionDetails.Text)
	}
	return gjson.ParseBytes(reply.Result.Value).String(), nil
}

// SetRequestInterception 开启或关闭请求阶段拦截
func (p *cdpPage) SetRequestInterception(ctx context.Context, enabled bool) error {
	if !enabled {
		return p.client.Fetch.Disable(ctx)
	}
	all := "*"
	patterns := []fetch.RequestPattern{
		{URLPattern: &all, RequestStage: fetch.RequestStageRequest},
	}
	return p.client.Fetch.Enable(ctx, &fetch.EnableArgs{Patterns: patterns})
}

// OnRequest 订阅拦截事件流，每个请求在独立 goroutine 中处理
func (p *cdpPage) OnRequest(h RequestHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handler != nil {
		return ErrHandlerRegistered
	}
	rp, err := p.client.Fetch.RequestPaused(p.ctx)
	if err != nil {
		return fmt.Errorf("subscribe request paused: %w", err)
	}
	p.handler = h
	go p.consume(rp, h)
	return nil
}

// consume 持续接收拦截事件并分发处理
func (p *cdpPage) consume(rp fetch.RequestPausedClient, h RequestHandler) {
	defer rp.Close()
	p.log.Debug("开始消费拦截事件流")
	for {
		ev, err := rp.Recv()
		if err != nil {
			if p.ctx.Err() == nil {
				p.log.Err(err, "接收拦截事件失败，页面连接已断开")
				p.cancel()
			}
			return
		}
		go p.dispatch(ev, h)
	}
}

// dispatch 处理单个拦截事件；回调未执行终结动作时降级为原生放行
func (p *cdpPage) dispatch(ev *fetch.RequestPausedReply, h RequestHandler) {
	dispatchPaused(p.ctx, p.client.Fetch, ev, p.browser.commandTimeout, h, p.log)
}

func dispatchPaused(ctx context.Context, f cdp.Fetch, ev *fetch.RequestPausedReply, timeout commandTimeout, h RequestHandler, l logger.Logger) {
	req := newInterceptedRequest(f, ev, timeout)
	if req.req.BodyMissing {
		// 请求体被浏览器省略，转发会丢失请求体，直接中止
		l.Warn("拦截事件缺少请求体，中止请求", "requestID", ev.RequestID, "url", ev.Request.URL)
		if err := req.Abort(ctx, http.StatusRequestEntityTooLarge); err != nil {
			l.Err(err, "中止请求失败", "requestID", ev.RequestID)
		}
		return
	}
	h(ctx, req)
	if req.isHandled() {
		return
	}
	l.Warn("回调未处理请求，降级为原生放行", "requestID", ev.RequestID, "url", ev.Request.URL)
	if err := req.continueNative(ctx); err != nil && !errors.Is(err, ErrRequestHandled) {
		l.Err(err, "原生放行失败", "requestID", ev.RequestID)
	}
}

// Close 关闭页面，可重复调用
func (p *cdpPage) Close(ctx context.Context) error {
	var err error
	p.closeOnce.Do(func() {
		p.cancel()
		if cerr := p.conn.Close(); cerr != nil {
			err = cerr
		}
		if cerr := p.browser.dt.Close(ctx, p.target); cerr != nil && err == nil {
			err = cerr
		}
		p.log.Debug("页面已关闭")
	})
	return err
}
