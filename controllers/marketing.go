package controllers

import (
	"html/template"
	"strings"

	"app/lib"
	"app/pay"
)

// Marketing serves the public pages.
type Marketing struct {
	Engine *pay.Engine
}

func (ct *Marketing) Home(c *lib.Ctx) {
	cfg := ct.Engine.Config()
	c.Render(200, "home/index", lib.J{
		"title":         "Samantha",
		"priceWei":      cfg.Price,
		"trialDuration": cfg.TrialDuration.String(),
		"paidDuration":  cfg.PaidDuration.String(),
	})
}

// DocsView renders a markdown document bundled under assets/docs/.
func (ct *Marketing) DocsView(c *lib.Ctx) {
	slug := c.Param("slug", "")
	if slug == "" || strings.ContainsAny(slug, "./\\") {
		c.Render(404, "other/404", lib.J{})
		return
	}
	bs, err := c.Server.FS.ReadFile("assets/docs/" + slug + ".md")
	if err != nil {
		c.Render(404, "other/404", lib.J{})
		return
	}
	c.Render(200, "docs/view", lib.J{
		"title": lib.StringToTitle(strings.ReplaceAll(slug, "-", " ")),
		"body":  template.HTML(lib.MarkdownToString(string(bs))),
	})
}
