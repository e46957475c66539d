package utils

import (
	"mime"
	"path/filepath"
	"strings"
)

// mimeToExtMap 允许上传的 MIME 类型到安全扩展名的映射
var mimeToExtMap = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// extAliases 原始文件名中可接受的扩展名
var extAliases = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// NormalizeMediaType 去除参数并转为小写，如 "Image/PNG; charset=x" -> "image/png"
func NormalizeMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.Split(contentType, ";")[0]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsAllowedImageType 声明的类型是否在允许列表中
func IsAllowedImageType(contentType string) bool {
	_, ok := mimeToExtMap[NormalizeMediaType(contentType)]
	return ok
}

// GetSafeExtension 根据MIME类型返回安全的文件扩展名
// 如果MIME类型不被允许，返回空字符串
func GetSafeExtension(mimeType string) string {
	return mimeToExtMap[NormalizeMediaType(mimeType)]
}

// GetExtensionFromFilename 从文件名获取扩展名（小写）
func GetExtensionFromFilename(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// ResolveExtension 优先保留原始文件名的扩展名，不安全或缺失时按 MIME 类型推导
func ResolveExtension(originalName, mimeType string) string {
	ext := GetExtensionFromFilename(originalName)
	if _, ok := extAliases[ext]; ok {
		return ext
	}
	return GetSafeExtension(mimeType)
}

// ContentTypeByFilename 按存储文件名推断响应的 Content-Type
func ContentTypeByFilename(filename string) string {
	if ct, ok := extAliases[GetExtensionFromFilename(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}
