package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	adapter "cdpmock/internal/adapter/cdp"
	"cdpmock/pkg/traffic"

	"github.com/mafredri/cdp"
	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/network"
)

// ErrRequestHandled 请求已执行过终结动作（respond/abort/continue）
var ErrRequestHandled = errors.New("browser: request already handled")

// Request 页面发出并被暂停的请求，必须且只能执行一次 Respond 或 Abort
type Request interface {
	ID() string
	URL() string
	Method() string
	Headers() traffic.Header
	// PostData 返回请求体；没有请求体或为空时 ok 为 false
	PostData() (body []byte, ok bool)
	ResourceType() string
	// Respond 回填响应；回填指令失败时请求以失败结束，不会悬挂
	Respond(ctx context.Context, res *traffic.Response) error
	// Abort 以状态码中止请求，状态码映射为 CDP 错误原因
	Abort(ctx context.Context, status int) error
}

// RequestHandler 请求拦截回调
type RequestHandler func(ctx context.Context, req Request)

type interceptedRequest struct {
	fetch   cdp.Fetch
	ev      *fetch.RequestPausedReply
	req     *traffic.Request
	timeout commandTimeout
	handled atomic.Bool
}

func newInterceptedRequest(f cdp.Fetch, ev *fetch.RequestPausedReply, timeout commandTimeout) *interceptedRequest {
	return &interceptedRequest{
		fetch:   f,
		ev:      ev,
		req:     adapter.ToNeutralRequest(ev),
		timeout: timeout,
	}
}

func (r *interceptedRequest) ID() string              { return r.req.ID }
func (r *interceptedRequest) URL() string             { return r.req.URL }
func (r *interceptedRequest) Method() string          { return r.req.Method }
func (r *interceptedRequest) Headers() traffic.Header { return r.req.Headers.Clone() }
func (r *interceptedRequest) ResourceType() string    { return r.req.ResourceType }

func (r *interceptedRequest) PostData() ([]byte, bool) {
	if !r.req.HasBody {
		return nil, false
	}
	return r.req.Body, true
}

// claim 抢占终结动作，只有第一次调用返回 true
func (r *interceptedRequest) claim() bool {
	return r.handled.CompareAndSwap(false, true)
}

func (r *interceptedRequest) isHandled() bool {
	return r.handled.Load()
}

func (r *interceptedRequest) Respond(ctx context.Context, res *traffic.Response) error {
	if !r.claim() {
		return ErrRequestHandled
	}
	ctx, cancel := r.timeout.apply(ctx)
	defer cancel()
	args := &fetch.FulfillRequestArgs{
		RequestID:       r.ev.RequestID,
		ResponseCode:    res.StatusCode,
		ResponseHeaders: adapter.ToHeaderEntries(res.Headers),
	}
	if len(res.Body) > 0 {
		args.Body = res.Body
	}
	if err := r.fetch.FulfillRequest(ctx, args); err != nil {
		ferr := r.fetch.FailRequest(ctx, &fetch.FailRequestArgs{
			RequestID:   r.ev.RequestID,
			ErrorReason: network.ErrorReasonFailed,
		})
		if ferr != nil {
			return errors.Join(fmt.Errorf("fulfill request: %w", err), fmt.Errorf("fail request: %w", ferr))
		}
		return fmt.Errorf("fulfill request: %w", err)
	}
	return nil
}

func (r *interceptedRequest) Abort(ctx context.Context, status int) error {
	if !r.claim() {
		return ErrRequestHandled
	}
	ctx, cancel := r.timeout.apply(ctx)
	defer cancel()
	return r.fetch.FailRequest(ctx, &fetch.FailRequestArgs{
		RequestID:   r.ev.RequestID,
		ErrorReason: AbortReason(status),
	})
}

// continueNative 放行给浏览器原生网络栈
func (r *interceptedRequest) continueNative(ctx context.Context) error {
	if !r.claim() {
		return ErrRequestHandled
	}
	ctx, cancel := r.timeout.apply(ctx)
	defer cancel()
	return r.fetch.ContinueRequest(ctx, &fetch.ContinueRequestArgs{RequestID: r.ev.RequestID})
}

// AbortReason 将中止状态码映射为 CDP 网络错误原因
func AbortReason(status int) network.ErrorReason {
	switch status {
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return network.ErrorReasonTimedOut
	case http.StatusForbidden:
		return network.ErrorReasonAccessDenied
	default:
		return network.ErrorReasonFailed
	}
}
