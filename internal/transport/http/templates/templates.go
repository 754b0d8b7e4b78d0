package templates

import (
	"embed"
	"html/template"
)

//go:embed *.tmpl
var files embed.FS

func funcs() template.FuncMap {
	return template.FuncMap{
		// seq 生成 n 个占位行
		"seq": func(n int) []int {
			if n <= 0 {
				return nil
			}
			return make([]int, n)
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
}

// Load 解析内嵌模板，交给 gin.SetHTMLTemplate
func Load() (*template.Template, error) {
	return template.New("root").Funcs(funcs()).ParseFS(files, "*.tmpl")
}
