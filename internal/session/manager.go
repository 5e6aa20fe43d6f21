package session

import (
	"sort"
	"sync"

	"cdpmock/internal/logger"
	"cdpmock/internal/metrics"
	"cdpmock/pkg/browser"
	"cdpmock/pkg/model"
)

// Manager 已挂载转发器的页面登记表，页面关闭后自动移除
type Manager struct {
	mu      sync.RWMutex
	pages   map[model.TargetID]browser.Page
	log     logger.Logger
	metrics *metrics.Metrics
}

// NewManager 创建页面登记表
func NewManager(l logger.Logger, m *metrics.Metrics) *Manager {
	if l == nil {
		l = logger.NewNop()
	}
	return &Manager{
		pages:   make(map[model.TargetID]browser.Page),
		log:     l,
		metrics: m,
	}
}

// Use 替换后续登记使用的日志与指标，已登记页面沿用登记时的指标
func (m *Manager) Use(l logger.Logger, mt *metrics.Metrics) {
	if l == nil {
		l = logger.NewNop()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log, m.metrics = l, mt
}

// Track 登记页面，并在页面关闭时移除
func (m *Manager) Track(p browser.Page) {
	id := p.ID()
	m.mu.Lock()
	if _, ok := m.pages[id]; ok {
		m.mu.Unlock()
		return
	}
	m.pages[id] = p
	l, mt := m.log, m.metrics
	m.mu.Unlock()

	mt.PageBridged()
	l.Info("页面已挂载请求转发", "target", string(id))

	go func() {
		<-p.Done()
		m.remove(p, l, mt)
	}()
}

func (m *Manager) remove(p browser.Page, l logger.Logger, mt *metrics.Metrics) {
	id := p.ID()
	m.mu.Lock()
	cur, ok := m.pages[id]
	ok = ok && cur == p
	if ok {
		delete(m.pages, id)
	}
	m.mu.Unlock()
	if ok {
		mt.PageClosed()
		l.Info("页面已关闭，移除登记", "target", string(id))
	}
}

// List 返回所有登记页面的ID（已排序）
func (m *Manager) List() []model.TargetID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := make([]model.TargetID, 0, len(m.pages))
	for id := range m.pages {
		list = append(list, id)
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list
}
