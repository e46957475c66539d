package pages

import (
	"embed"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kinnrichard/image-uploader/api/middleware"
)

//go:embed views/*.html
var views embed.FS

var (
	loginPage     = mustRead("views/login.html")
	dashboardPage = mustRead("views/dashboard.html")
)

func mustRead(name string) []byte {
	data, err := views.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return data
}

// Index 未登录显示登录页，已登录显示控制台
func Index(c *gin.Context) {
	page := loginPage
	if _, ok := middleware.GetUserID(c); ok {
		page = dashboardPage
	}

	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}
