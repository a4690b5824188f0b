package mailing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/letteros/letteros/internal/domain"
)

func TestRenderPersonalizes(t *testing.T) {
	r := NewRenderer()
	n := &domain.Newsletter{
		ID:        "n1",
		Title:     "News for {{ subscriber.name | default: \"you\" | first_name }}",
		Content:   "Hi {{ subscriber.name | default: \"friend\" }},\n\nFish & chips <today>.\nSecond line.",
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	msg, err := r.Render(n, &domain.Subscriber{Email: "ann@example.com", Name: "Ann Lee"}, "Kit")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", msg.To)
	assert.Equal(t, "News for Ann", msg.Subject)
	assert.Equal(t, "Hi Ann Lee,\n\nFish & chips <today>.\nSecond line.", msg.Text)
	assert.Contains(t, msg.HTML, "<p>Hi Ann Lee,</p>")
	assert.Contains(t, msg.HTML, "<p>Fish &amp; chips &lt;today&gt;.<br>Second line.</p>")
	assert.Contains(t, msg.HTML, "subscribed to Kit")

	msg, err = r.Render(n, &domain.Subscriber{Email: "b@example.com"}, "Kit")
	require.NoError(t, err)
	assert.Equal(t, "News for you", msg.Subject)
	assert.Contains(t, msg.Text, "Hi friend,")
}

func TestRenderBrokenTemplateSendsRaw(t *testing.T) {
	r := NewRenderer()
	n := &domain.Newsletter{ID: "n2", Title: "Plain", Content: "{% if x %}never closed"}
	msg, err := r.Render(n, &domain.Subscriber{Email: "a@x.com"}, "")
	require.NoError(t, err)
	assert.Equal(t, "{% if x %}never closed", msg.Text)
}

func TestToHTMLSkipsBlankParagraphs(t *testing.T) {
	assert.Equal(t, "<p>a</p>\n<p>b</p>\n", toHTML("a\r\n\r\n\n\nb\n\n"))
	assert.Equal(t, "", toHTML("  "))
}
