package relay

import (
	"context"
	"fmt"
	"time"

	"cdpmock/internal/session"
	"cdpmock/pkg/browser"
	"cdpmock/pkg/model"
)

// WrapPageFactory 包装页面创建函数：先挂载转发回调再开启请求拦截，页面交还调用方前完成。
// pages 可为空
func WrapPageFactory(orig browser.PageFactory, b *Bridge, pages *session.Manager) browser.PageFactory {
	return func(ctx context.Context, br *browser.Browser) (browser.Page, error) {
		p, err := orig(ctx, br)
		if err != nil {
			return nil, err
		}
		if err := p.OnRequest(b.Handler(p.ID())); err != nil {
			closeQuietly(p)
			return nil, fmt.Errorf("attach request bridge: %w", err)
		}
		if err := p.SetRequestInterception(ctx, true); err != nil {
			closeQuietly(p)
			return nil, fmt.Errorf("enable request interception: %w", err)
		}
		if pages != nil {
			pages.Track(p)
		}
		b.emit(model.Event{Type: model.EventPageBridged, Target: p.ID()})
		return p, nil
	}
}

func closeQuietly(p browser.Page) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = p.Close(ctx)
}
