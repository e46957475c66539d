package utils

import (
	"net"
	"net/url"
	"strings"
)

// UploadsURLPrefix 上传文件的公开访问前缀
const UploadsURLPrefix = "/uploads/"

// BuildImageURL 返回图片的站内访问路径，形如 /uploads/<filename>
func BuildImageURL(filename string) string {
	return UploadsURLPrefix + filename
}

// ExtractCookieDomain 从配置的域名中提取 Cookie Domain（去除协议、端口与路径）
func ExtractCookieDomain(domain string) string {
	if domain == "" {
		return ""
	}

	if !strings.Contains(domain, "://") {
		domain = "http://" + domain
	}

	u, err := url.Parse(domain)
	if err != nil {
		return ""
	}

	host := u.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return strings.Trim(host, "[]")
}
