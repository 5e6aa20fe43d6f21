package traffic

import (
	"net/http"
	"sort"
	"strings"
)

// HeaderEntry 单个头部条目，保留原始大小写
type HeaderEntry struct {
	Name  string
	Value string
}

// Header 有序头部列表，不做大小写折叠，允许重复键
type Header []HeaderEntry

// Get 获取指定 Header 的首个值（大小写不敏感）
func (h Header) Get(key string) string {
	for _, e := range h {
		if strings.EqualFold(e.Name, key) {
			return e.Value
		}
	}
	return ""
}

// Values 获取指定 Header 的全部值（大小写不敏感）
func (h Header) Values(key string) []string {
	var out []string
	for _, e := range h {
		if strings.EqualFold(e.Name, key) {
			out = append(out, e.Value)
		}
	}
	return out
}

// Add 追加一个头部条目
func (h *Header) Add(name, value string) {
	*h = append(*h, HeaderEntry{Name: name, Value: value})
}

// Clone 深拷贝
func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	copy(out, h)
	return out
}

// HTTP 转换为 net/http 头部，键名按原样写入
func (h Header) HTTP() http.Header {
	out := make(http.Header, len(h))
	for _, e := range h {
		out[e.Name] = append(out[e.Name], e.Value)
	}
	return out
}

// FromHTTP 由 net/http 头部构造，按键排序，每个值一个条目
func FromHTTP(src http.Header) Header {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(Header, 0, len(src))
	for _, k := range keys {
		for _, v := range src[k] {
			out = append(out, HeaderEntry{Name: k, Value: v})
		}
	}
	return out
}

// Request 中立的请求模型
type Request struct {
	ID           string // 浏览器侧请求ID
	URL          string // 完整URL
	Method       string // HTTP方法
	Headers      Header // 请求头
	Body         []byte // 请求体原始数据
	HasBody      bool   // 是否携带请求体
	BodyMissing  bool   // 浏览器声明有请求体但事件中未携带（过长被省略）
	ResourceType string // 资源类型 (如 Document, XHR)
}

// Response 中立的响应模型
type Response struct {
	StatusCode int    // 状态码
	Headers    Header // 响应头
	Body       []byte // 响应体数据
}

// NewRequest 创建初始化请求对象
func NewRequest() *Request {
	return &Request{
		Method:  http.MethodGet,
		Headers: Header{},
	}
}

// NewResponse 创建初始化响应对象
func NewResponse() *Response {
	return &Response{
		StatusCode: http.StatusOK,
		Headers:    Header{},
	}
}
