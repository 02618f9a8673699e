// Package linktitle は外部ページのタイトル解決を提供する。
package linktitle

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
	"golang.org/x/net/html"

	"github.com/hitoshi/studyshare/internal/model"
)

// oembedMaxBytes はoEmbedレスポンスの読み込み上限。
const oembedMaxBytes = 50 * 1024

// Fetcher はSSRFガード付きHTTPクライアントのインターフェース。
type Fetcher interface {
	Get(url string) (*http.Response, error)
}

// Service は学習項目に貼られたURLからページタイトルを解決する。
// 内部ネットワークへの到達を防ぐため、取得は必ずSSRFガード付きクライアントを通す。
type Service struct {
	fetcher     Fetcher
	maxBodySize int64
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(timeout time.Duration, maxBodySize int64) *Service {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes("http", "https").
		Build()
	return &Service{
		fetcher:     safeurl.Client(config),
		maxBodySize: maxBodySize,
	}
}

// ResolveTitle は外部ページを取得し、og:titleまたは<title>を返す。
// どちらも見つからない場合は空文字を返す（エラーにはしない）。
func (s *Service) ResolveTitle(rawURL string) (string, error) {
	if err := validateExternalURL(rawURL); err != nil {
		return "", err
	}

	resp, err := s.fetcher.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("ページの取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ページの取得に失敗しました: status %d", resp.StatusCode)
	}

	title, err := extractTitle(io.LimitReader(resp.Body, s.maxBodySize))
	if err != nil {
		return "", fmt.Errorf("ページの解析に失敗しました: %w", err)
	}
	return title, nil
}

// ResolveYouTubeTitle はYouTube動画のタイトルをoEmbedエンドポイントから取得する。
// レスポンスはoembedMaxBytesで打ち切る。
func (s *Service) ResolveYouTubeTitle(videoURL string) (string, error) {
	if err := validateExternalURL(videoURL); err != nil {
		return "", err
	}
	if !isYouTubeURL(videoURL) {
		return "", model.NewValidationFailedError("youtube url")
	}

	endpoint := "https://www.youtube.com/oembed?format=json&url=" + url.QueryEscape(videoURL)
	resp, err := s.fetcher.Get(endpoint)
	if err != nil {
		return "", fmt.Errorf("oEmbedの取得に失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("oEmbedの取得に失敗しました: status %d", resp.StatusCode)
	}

	var payload struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, oembedMaxBytes)).Decode(&payload); err != nil {
		return "", fmt.Errorf("oEmbedの解析に失敗しました: %w", err)
	}
	return payload.Title, nil
}

// validateExternalURL はhttp/httpsの絶対URLのみを許可する。
func validateExternalURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return model.NewValidationFailedError("url")
	}
	return nil
}

// isYouTubeURL はYouTube本体と短縮ドメインのURLかを判定する。
func isYouTubeURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return host == "youtube.com" || host == "youtu.be" || host == "m.youtube.com"
}

// extractTitle はog:titleを優先し、なければ<title>のテキストを返す。
func extractTitle(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var ogTitle, pageTitle string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "meta":
				var property, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "property":
						property = attr.Val
					case "content":
						content = attr.Val
					}
				}
				if property == "og:title" && ogTitle == "" {
					ogTitle = content
				}
			case "title":
				if pageTitle == "" && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
					pageTitle = n.FirstChild.Data
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	if ogTitle != "" {
		return strings.TrimSpace(ogTitle), nil
	}
	return strings.TrimSpace(pageTitle), nil
}
