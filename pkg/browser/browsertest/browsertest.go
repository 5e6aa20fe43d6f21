// Package browsertest 提供内存实现的页面与请求，用于不依赖真实浏览器的测试
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cdpmock/pkg/browser"
	"cdpmock/pkg/model"
	"cdpmock/pkg/traffic"
)

// Page 内存页面
type Page struct {
	PageID model.TargetID
	HTML   string

	// InterceptErr 非空时 SetRequestInterception 返回该错误
	InterceptErr error

	mu           sync.Mutex
	intercepting bool
	handler      browser.RequestHandler
	closed       bool
	done         chan struct{}
}

// NewPage 创建内存页面
func NewPage(id model.TargetID) *Page {
	return &Page{PageID: id, done: make(chan struct{})}
}

func (p *Page) ID() model.TargetID { return p.PageID }

func (p *Page) Navigate(context.Context, string) error { return nil }

func (p *Page) Content(context.Context) (string, error) { return p.HTML, nil }

func (p *Page) SetRequestInterception(_ context.Context, enabled bool) error {
	if p.InterceptErr != nil {
		return p.InterceptErr
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.intercepting = enabled
	return nil
}

func (p *Page) OnRequest(h browser.RequestHandler) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handler != nil {
		return browser.ErrHandlerRegistered
	}
	p.handler = h
	return nil
}

func (p *Page) Done() <-chan struct{} { return p.done }

func (p *Page) Close(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	return nil
}

// Intercepting 是否开启了请求拦截
func (p *Page) Intercepting() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.intercepting
}

// HasHandler 是否注册了请求回调
func (p *Page) HasHandler() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handler != nil
}

// Closed 是否已关闭
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Emit 模拟页面发出一个请求，同步调用已注册的回调
func (p *Page) Emit(ctx context.Context, req browser.Request) error {
	p.mu.Lock()
	h, on := p.handler, p.intercepting
	p.mu.Unlock()
	if h == nil || !on {
		return errors.New("browsertest: page is not intercepting requests")
	}
	h(ctx, req)
	return nil
}

// Factory 记录创建过的内存页面
type Factory struct {
	// Err 非空时 New 返回该错误
	Err error

	mu    sync.Mutex
	pages []*Page
}

// New 满足 browser.PageFactory 签名
func (f *Factory) New(_ context.Context, _ *browser.Browser) (browser.Page, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := NewPage(model.TargetID(fmt.Sprintf("page-%d", len(f.pages)+1)))
	f.pages = append(f.pages, p)
	return p, nil
}

// Pages 已创建的页面
func (f *Factory) Pages() []*Page {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*Page, len(f.pages))
	copy(out, f.pages)
	return out
}

// Request 内存请求，记录终结动作
type Request struct {
	RequestID  string
	RawURL     string
	HTTPMethod string
	Header     traffic.Header
	Body       []byte
	Resource   string

	// RespondErr 非空时 Respond 在记录后返回该错误
	RespondErr error

	mu          sync.Mutex
	terminals   int
	response    *traffic.Response
	abortStatus int
	done        chan struct{}
}

// NewRequest 创建内存请求
func NewRequest(method, url string) *Request {
	return &Request{
		RequestID:  fmt.Sprintf("%s %s", method, url),
		RawURL:     url,
		HTTPMethod: method,
		Header:     traffic.Header{},
		Resource:   "XHR",
		done:       make(chan struct{}),
	}
}

func (r *Request) ID() string              { return r.RequestID }
func (r *Request) URL() string             { return r.RawURL }
func (r *Request) Method() string          { return r.HTTPMethod }
func (r *Request) Headers() traffic.Header { return r.Header.Clone() }
func (r *Request) ResourceType() string    { return r.Resource }

func (r *Request) PostData() ([]byte, bool) {
	if len(r.Body) == 0 {
		return nil, false
	}
	return r.Body, true
}

func (r *Request) Respond(_ context.Context, res *traffic.Response) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminals++
	if r.terminals > 1 {
		return browser.ErrRequestHandled
	}
	r.response = res
	close(r.done)
	return r.RespondErr
}

func (r *Request) Abort(_ context.Context, status int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.terminals++
	if r.terminals > 1 {
		return browser.ErrRequestHandled
	}
	r.abortStatus = status
	close(r.done)
	return nil
}

// Done 执行过终结动作后关闭
func (r *Request) Done() <-chan struct{} { return r.done }

// Response 收到的响应，未 Respond 时为 nil
func (r *Request) Response() *traffic.Response {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.response
}

// AbortStatus 中止状态码，未 Abort 时为 0
func (r *Request) AbortStatus() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.abortStatus
}

// Terminals 终结动作调用次数
func (r *Request) Terminals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.terminals
}

var (
	_ browser.Page    = (*Page)(nil)
	_ browser.Request = (*Request)(nil)
)
