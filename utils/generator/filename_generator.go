package generator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FilenamePrefix 存储文件名前缀
const FilenamePrefix = "image"

// FilenameGenerator 上传文件名生成器
type FilenameGenerator struct {
	now func() time.Time
}

// NewFilenameGenerator 创建文件名生成器
func NewFilenameGenerator() *FilenameGenerator {
	return &FilenameGenerator{now: time.Now}
}

// NewFilenameGeneratorWithClock 使用指定时钟创建生成器
func NewFilenameGeneratorWithClock(now func() time.Time) *FilenameGenerator {
	return &FilenameGenerator{now: now}
}

// Generate 生成形如 image-1700000000000-0123456789abcdef.jpg 的存储文件名
// ext 需包含前导点，为空时不带扩展名
func (g *FilenameGenerator) Generate(ext string) string {
	return fmt.Sprintf("%s-%d-%s%s", FilenamePrefix, g.now().UnixMilli(), randomHex(), strings.ToLower(ext))
}

// StoragePath 存储路径与文件名一致，所有文件平铺在上传根目录
func (g *FilenameGenerator) StoragePath(filename string) string {
	return filename
}

// randomHex 取 uuid v4 的前 16 个十六进制字符
func randomHex() string {
	id := uuid.New()
	return strings.ReplaceAll(id.String(), "-", "")[:16]
}

// ParseTimestamp 从生成的文件名中解析毫秒时间戳
func ParseTimestamp(filename string) (time.Time, bool) {
	parts := strings.SplitN(filename, "-", 3)
	if len(parts) != 3 || parts[0] != FilenamePrefix {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}
