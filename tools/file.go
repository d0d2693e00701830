package tools

import (
	"fmt"
	"net/url"
	"os"

	"github.com/gin-gonic/gin"
)

func FileExist(path string) bool {
	_, err := os.Stat(path)
	if err == nil {
		return true // 文件存在
	}
	// 文件不存在或其他错误（如权限问题）
	return false
}

const (
	ExcelContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// SendStoredFile 以附件形式返回本地文件
func SendStoredFile(c *gin.Context, path, displayName, contentType string) error {
	if !FileExist(path) {
		return fmt.Errorf("文件 %s 不存在", path)
	}
	escaped := url.QueryEscape(displayName)

	c.Header("Content-Type", contentType)
	c.Header(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, escaped, escaped),
	)

	c.File(path)
	return nil
}

// SendBytes 以附件形式返回内存中的文件内容
func SendBytes(c *gin.Context, data []byte, displayName, contentType string) {
	escaped := url.QueryEscape(displayName)
	c.Header(
		"Content-Disposition",
		fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, escaped, escaped),
	)
	c.Data(200, contentType, data)
}
