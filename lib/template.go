package lib

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/ioutil"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var templateFunctions = template.FuncMap{
	"title": StringToTitle,
	"truncate": func(s string, length int) string {
		if len(s) > length {
			return s[0:length] + "…"
		} else {
			return s
		}
	},
	"json": func(i interface{}) string {
		bs, err := json.Marshal(i)
		Check(err)
		return string(bs)
	},
	"env": func(name string) string {
		return Env(name, "")
	},
	"now": func() time.Time {
		return time.Now()
	},
	"ago": func(t time.Time) string {
		d := time.Now().Sub(t)
		if d < 60*time.Minute {
			return fmt.Sprintf("%dm ago", d/time.Minute)
		} else if d < 24*time.Hour {
			return fmt.Sprintf("%dh ago", d/time.Hour)
		} else {
			return t.Format("2006-01-02")
		}
	},
	"markdown": func(text string) template.HTML {
		return template.HTML(MarkdownToString(text))
	},
	"formatAddress": func(a string) string {
		if len(a) < 12 {
			return a
		}
		return fmt.Sprintf("%s…%s", a[0:6], a[len(a)-4:])
	},
	"formatNumber": func(n *BigInt, s int64, d int64) string {
		p := message.NewPrinter(language.English)
		f, err := strconv.ParseFloat(n.String(), 64)
		Check(err)
		return p.Sprintf("%0."+strconv.FormatInt(d, 10)+"f", f/math.Pow(10.0, float64(s)))
	},
	"formatUnits": func(n *BigInt, s int64) string {
		f, err := strconv.ParseFloat(n.String(), 64)
		Check(err)
		return fmt.Sprintf("%f", f/math.Pow(10.0, float64(s)))
	},
}

// NewTemplateFromFS builds a Template instance that contains all the templates from the provided file system sub-folders
func NewTemplateFromFS(fs embed.FS) *template.Template {
	t := template.New("").Funcs(templateFunctions)
	dirs, err := fs.ReadDir("views")
	Check(err)
	for _, dirInfo := range dirs {
		if !dirInfo.IsDir() {
			continue
		}
		files, err := fs.ReadDir("views/" + dirInfo.Name())
		Check(err)
		for _, fileInfo := range files {
			name := dirInfo.Name() + "/" + fileInfo.Name()
			file, err := fs.Open("views/" + name)
			Check(err)
			contents, err := ioutil.ReadAll(file)
			Check(err)
			t, err = t.New(strings.Replace(name, ".html", "", -1)).Parse(string(contents))
			Check(err)
		}
	}
	return t
}
