package browser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Title 从页面 HTML 中取 <title> 文本
func Title(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("head > title").First().Text()), nil
}

// BodyText 从页面 HTML 中取 <body> 文本
func BodyText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(doc.Find("body").Text()), nil
}
