package mailing

import (
	"fmt"
	"html"
	"log"
	"net/url"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/letteros/letteros/internal/domain"
)

// Message is one rendered email for one recipient.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

const layout = `<!DOCTYPE html>
<html>
<body style="margin:0;padding:24px;font-family:Georgia,serif;line-height:1.6;color:#222;">
<div style="max-width:600px;margin:0 auto;">
{{ body }}
<p style="margin-top:40px;font-size:12px;color:#888;">You are receiving this because you subscribed to {{ sender | escape }}.</p>
</div>
</body>
</html>`

// Renderer turns newsletter content into emails. Newsletter bodies may use
// liquid placeholders such as {{ subscriber.name | default: "friend" }}.
type Renderer struct {
	engine *liquid.Engine
	layout *liquid.Template
	cache  sync.Map // newsletter id + updatedAt -> *liquid.Template
}

func NewRenderer() *Renderer {
	engine := liquid.NewEngine()
	registerFilters(engine)
	tpl, err := engine.ParseString(layout)
	if err != nil {
		panic(fmt.Sprintf("mailing: layout does not parse: %v", err))
	}
	return &Renderer{engine: engine, layout: tpl}
}

func registerFilters(engine *liquid.Engine) {
	// {{ subscriber.name | default: "friend" }}
	engine.RegisterFilter("default", func(value interface{}, fallback string) interface{} {
		if value == nil {
			return fallback
		}
		if s := fmt.Sprintf("%v", value); s == "" || s == "<nil>" {
			return fallback
		}
		return value
	})
	engine.RegisterFilter("capitalize", func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	})
	engine.RegisterFilter("first_name", func(s string) string {
		if f := strings.Fields(s); len(f) > 0 {
			return f[0]
		}
		return ""
	})
	engine.RegisterFilter("urlencode", url.QueryEscape)
	engine.RegisterFilter("escape", html.EscapeString)
	engine.RegisterFilter("email_domain", func(email string) string {
		if i := strings.LastIndex(email, "@"); i >= 0 {
			return email[i+1:]
		}
		return ""
	})
}

// Render personalizes n for sub. A body that fails to parse or render is
// sent as written rather than dropped.
func (r *Renderer) Render(n *domain.Newsletter, sub *domain.Subscriber, senderName string) (*Message, error) {
	vars := map[string]interface{}{
		"subscriber": map[string]interface{}{
			"email": sub.Email,
			"name":  sub.Name,
			"tags":  sub.Tags,
		},
		"newsletter": map[string]interface{}{
			"title": n.Title,
		},
	}

	subject := r.renderString(n.ID+":subject:"+n.UpdatedAt.String(), n.Title, vars)
	text := r.renderString(n.ID+":body:"+n.UpdatedAt.String(), n.Content, vars)

	body, err := r.layout.RenderString(map[string]interface{}{
		"body":   toHTML(text),
		"sender": senderName,
	})
	if err != nil {
		return nil, fmt.Errorf("render layout: %w", err)
	}

	return &Message{
		To:      sub.Email,
		Subject: subject,
		HTML:    body,
		Text:    text,
	}, nil
}

func (r *Renderer) renderString(key, src string, vars map[string]interface{}) string {
	var tpl *liquid.Template
	if cached, ok := r.cache.Load(key); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := r.engine.ParseString(src)
		if err != nil {
			log.Printf("[mailing] template parse error, sending raw: %v", err)
			return src
		}
		r.cache.Store(key, parsed)
		tpl = parsed
	}
	out, err := tpl.RenderString(vars)
	if err != nil {
		log.Printf("[mailing] template render error, sending raw: %v", err)
		return src
	}
	return out
}

// toHTML escapes plain text and turns blank-line separated blocks into
// paragraphs.
func toHTML(text string) string {
	var b strings.Builder
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(strings.ReplaceAll(html.EscapeString(para), "\n", "<br>"))
		b.WriteString("</p>\n")
	}
	return b.String()
}
