package lib

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
)

// Ctx represents the context of an incomming HTTP request and it's response
type Ctx struct {
	Req     *http.Request
	Res     http.ResponseWriter
	Tpl     *template.Template
	DB      *Database
	Cache   *Cache
	Storage *Storage
	Queue   *JobQueue
	Server  *Server

	Code   int
	Data   J
	params url.Values

	// Tracing
	tracingSpanID   string
	tracingTraceID  string
	tracingRootTags J
}

func NewCtx(server *Server) *Ctx {
	ctx := &Ctx{Data: J{}, params: url.Values{}}
	ctx.Tpl = server.Tpl
	ctx.DB = server.Database.WithCtx(ctx)
	ctx.Cache = server.Cache.WithCtx(ctx)
	ctx.Storage = server.Storage.WithCtx(ctx)
	ctx.Queue = server.Queue.WithCtx(ctx)
	ctx.Server = server

	ctx.tracingSpanID = NewID()
	ctx.tracingTraceID = NewID()
	ctx.tracingRootTags = J{}

	return ctx
}

// Params returns a map of all form and query params
func (c *Ctx) Params() map[string]string {
	c.Req.ParseForm()
	params := map[string]string{}
	for key := range c.Req.Form {
		params[key] = c.Req.Form.Get(key)
	}
	for key := range c.params {
		params[key] = c.params.Get(key)
	}
	return params
}

// Param returnds either a form value, a query param or a provided alternative
// string value for a given parameter name.
func (c *Ctx) Param(name, alt string) string {
	if value := c.Req.FormValue(name); value != "" {
		return value
	}
	if value := c.params.Get(name); value != "" {
		return value
	}
	return alt
}

// SetParam sets a path/query param value, mostly useful in tests.
func (c *Ctx) SetParam(name, value string) {
	if c.params == nil {
		c.params = url.Values{}
	}
	c.params.Set(name, value)
}

// Bind parses the request body as JSON into the provided struct/value
func (c *Ctx) Bind(data interface{}) {
	defer c.Req.Body.Close()
	Check(json.NewDecoder(c.Req.Body).Decode(data))
}

// BindJ parses the request body as JSON into a J (map[string]interface{}) value
func (c *Ctx) BindJ() J {
	body := J{}
	defer c.Req.Body.Close()
	Check(json.NewDecoder(c.Req.Body).Decode(&body))
	return body
}

// GetCookie returns the value of a cookie
func (c *Ctx) GetCookie(name string) string {
	if cookie, err := c.Req.Cookie(name); err == nil {
		return cookie.Value
	}
	return ""
}

// SetCookie sets a cookie's value (http only, so it can't be accessed by JavaScript)
// (with an expiration date far far out in the future)
func (c *Ctx) SetCookie(name, value string) {
	http.SetCookie(c.Res, &http.Cookie{
		Name:     name,
		Value:    value,
		HttpOnly: true,
		Path:     "/",
		MaxAge:   2147483647,
	})
}

// ClientIP returns the requester's IP, honoring the usual proxy headers.
func (c *Ctx) ClientIP() string {
	if v := c.Req.Header.Get("X-Forwarded-For"); v != "" {
		return strings.TrimSpace(strings.Split(v, ",")[0])
	}
	if v := c.Req.Header.Get("X-Real-Ip"); v != "" {
		return v
	}
	host := c.Req.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return host
}

// Fingerprint is a weak server-derived client identity used for advisory
// session anti-hijack checks. Never taken from client input, a chosen value
// would make strict checking gate nothing.
func (c *Ctx) Fingerprint() string {
	return c.ClientIP() + "|" + c.Req.UserAgent()
}

// BearerToken returns the token in the Authorization header, if any.
func (c *Ctx) BearerToken() string {
	h := c.Req.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return h[len("Bearer "):]
	}
	return ""
}

// Redirect sends a redirect response to the client
func (c *Ctx) Redirect(url string, args ...interface{}) {
	if len(args) > 0 {
		url = fmt.Sprintf(url, args...)
	}
	c.Code = 302
	c.Res.Header().Set("Location", url)
	c.Res.WriteHeader(302)
	c.Res.Write([]byte("Redirecting..."))
}

// Render renders an HTML template and sends it to the client
func (c *Ctx) Render(code int, template string, data J) {
	for k, v := range c.Data {
		if _, ok := data[k]; !ok {
			data[k] = v
		}
	}
	b := bytes.NewBuffer(nil)
	Check(c.Tpl.ExecuteTemplate(b, template, data))
	c.Code = code
	c.Res.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.Res.WriteHeader(code)
	c.Res.Write(b.Bytes())
}

// Text sends a text response to the client
func (c *Ctx) Text(code int, text string) {
	c.Code = code
	c.Res.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.Res.WriteHeader(code)
	c.Res.Write([]byte(text))
}

// JSON sends a JSON encoded response to the client
func (c *Ctx) JSON(code int, data interface{}) {
	bs, err := json.Marshal(data)
	Check(err)
	c.Code = code
	c.Res.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.Res.WriteHeader(code)
	c.Res.Write(bs)
}
