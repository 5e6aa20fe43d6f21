// Package activation 管理进程级页面创建函数的替换与恢复
package activation

import (
	"errors"
	"sync/atomic"
	"time"

	"cdpmock/internal/logger"
	"cdpmock/pkg/browser"

	"github.com/google/uuid"
)

var (
	// ErrAlreadyActive 已处于激活状态
	ErrAlreadyActive = errors.New("request bridge is already active")
	// ErrNotActive 未处于激活状态
	ErrNotActive = errors.New("request bridge is not active")
)

const (
	stateInactive int32 = iota
	stateSwitching
	stateActive
)

// WrapFunc 基于当前页面创建函数生成替换后的函数
type WrapFunc func(orig browser.PageFactory) browser.PageFactory

type installation struct {
	id          string
	original    browser.PageFactory
	activatedAt time.Time
}

// Controller 激活状态机：inactive -> switching -> active -> switching -> inactive
type Controller struct {
	state atomic.Int32
	inst  atomic.Pointer[installation]
	log   logger.Logger
}

// New 创建控制器
func New(l logger.Logger) *Controller {
	if l == nil {
		l = logger.NewNop()
	}
	return &Controller{log: l}
}

// Activate 用 wrap 包装当前页面创建函数并替换进程级引用
func (c *Controller) Activate(wrap WrapFunc) error {
	if !c.state.CompareAndSwap(stateInactive, stateSwitching) {
		return ErrAlreadyActive
	}
	done := false
	defer func() {
		if !done {
			c.state.Store(stateInactive)
		}
	}()

	orig := browser.CurrentPageFactory()
	inst := &installation{
		id:          uuid.NewString(),
		original:    orig,
		activatedAt: time.Now(),
	}
	browser.SwapPageFactory(wrap(orig))
	c.inst.Store(inst)
	c.state.Store(stateActive)
	done = true
	c.log.Info("请求转发已激活", "activation", inst.id)
	return nil
}

// Deactivate 恢复激活前的页面创建函数；已创建的页面保持转发
func (c *Controller) Deactivate() error {
	if !c.state.CompareAndSwap(stateActive, stateSwitching) {
		return ErrNotActive
	}
	inst := c.inst.Swap(nil)
	browser.SwapPageFactory(inst.original)
	c.state.Store(stateInactive)
	c.log.Info("请求转发已停用", "activation", inst.id, "activeFor", time.Since(inst.activatedAt))
	return nil
}

// IsActive 是否处于激活状态
func (c *Controller) IsActive() bool {
	return c.state.Load() == stateActive
}

// ActivationID 当前激活的标识，未激活时为空
func (c *Controller) ActivationID() string {
	if inst := c.inst.Load(); inst != nil {
		return inst.id
	}
	return ""
}
