package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripMarkup(t *testing.T) {
	t.Parallel()

	in := `<div itemscope itemtype="http://schema.org/Product" class="card">` +
		`<span itemprop="name">Widget</span><span itemprop='price'>3</span></div>`
	want := `<div class="card"><span>Widget</span><span>3</span></div>`
	assert.Equal(t, want, StripMarkup(in))
}

func TestStripMarkupItemPropBetweenScopeAndType(t *testing.T) {
	t.Parallel()

	in := `<div itemscope itemprop="author" itemtype="http://schema.org/Person"><span itemprop="name">Ann</span></div>`
	assert.Equal(t, `<div><span>Ann</span></div>`, StripMarkup(in))
}

func TestStripMarkupLeavesUnrelatedMarkup(t *testing.T) {
	t.Parallel()

	in := `<div class="itemscope" data-itemprop="x"><a href="http://schema.org/Product">link</a></div>`
	assert.Equal(t, in, StripMarkup(in))
}

func TestStripMarkupIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		productPage("Widget"),
		`<article itemscope itemtype="https://schema.org/NewsArticle"><h1 itemprop="headline">Hi</h1></article>`,
		`<p>nothing to strip</p>`,
		`<div itemscope itemtype="http://schema.org/Event"><div itemscope itemtype="http://schema.org/Place"></div></div>`,
		`<div itemscope itemprop="author" itemtype="http://schema.org/Person"><span itemprop="name">Ann</span></div>`,
	}
	for _, in := range inputs {
		once := StripMarkup(in)
		assert.Equal(t, once, StripMarkup(once))
	}
}
