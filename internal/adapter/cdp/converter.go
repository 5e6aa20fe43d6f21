package cdp

import (
	"bytes"
	"encoding/base64"

	"cdpmock/pkg/traffic"

	"github.com/mafredri/cdp/protocol/fetch"
	"github.com/mafredri/cdp/protocol/network"
	"github.com/tidwall/gjson"
)

// ToNeutralRequest 将 CDP 事件转换为中立 Request 模型
func ToNeutralRequest(ev *fetch.RequestPausedReply) *traffic.Request {
	req := traffic.NewRequest()
	req.ID = string(ev.RequestID)
	req.URL = ev.Request.URL
	req.Method = ev.Request.Method
	req.ResourceType = string(ev.ResourceType)
	req.Headers = ParseHeaders(ev.Request.Headers)

	req.Body = RequestBody(ev.Request)
	req.HasBody = len(req.Body) > 0
	req.BodyMissing = !req.HasBody && ev.Request.HasPostData != nil && *ev.Request.HasPostData
	return req
}

// RequestBody 还原请求体原始字节：优先拼接 postDataEntries（base64），解码失败时退回 postData 字符串
func RequestBody(r network.Request) []byte {
	if len(r.PostDataEntries) > 0 {
		var buf bytes.Buffer
		ok := true
		for _, e := range r.PostDataEntries {
			if e.Bytes == nil {
				continue
			}
			b, err := base64.StdEncoding.DecodeString(*e.Bytes)
			if err != nil {
				ok = false
				break
			}
			buf.Write(b)
		}
		if ok && buf.Len() > 0 {
			return buf.Bytes()
		}
	}
	if r.PostData != nil && *r.PostData != "" {
		return []byte(*r.PostData)
	}
	return nil
}

// ParseHeaders 按文档顺序解析 CDP 头部对象，保留原始大小写
func ParseHeaders(raw []byte) traffic.Header {
	h := traffic.Header{}
	if len(raw) == 0 {
		return h
	}
	gjson.ParseBytes(raw).ForEach(func(key, value gjson.Result) bool {
		h.Add(key.String(), value.String())
		return true
	})
	return h
}

// ToHeaderEntries 将中立 Header 转换为 CDP Header 条目
func ToHeaderEntries(h traffic.Header) []fetch.HeaderEntry {
	entries := make([]fetch.HeaderEntry, 0, len(h))
	for _, e := range h {
		entries = append(entries, fetch.HeaderEntry{Name: e.Name, Value: e.Value})
	}
	return entries
}
