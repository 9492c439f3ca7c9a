package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeContent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Script and line break",
			input:    "<script>x</script>Hello<br>World",
			expected: "Hello\nWorld",
		},
		{
			name:     "Emoji collapsed to its character",
			input:    `Hi <i class="emoji" style="background-image:url('//telegram.org/img/emoji/40/F09F988A.png')"><b>😊</b></i>`,
			expected: "Hi 😊",
		},
		{
			name:     "Entities decoded",
			input:    "Fish &amp; chips &quot;today&quot; &#x1F600;",
			expected: `Fish &amp; chips "today" 😀`,
		},
		{
			name:     "Double-escaped markup keeps its level",
			input:    "&amp;lt;b&amp;gt; vs &lt;b&gt;",
			expected: "&amp;lt;b&amp;gt; vs &lt;b&gt;",
		},
		{
			name:     "Escaped markup stays text",
			input:    "&lt;img src=x onerror=alert(1)&gt;",
			expected: "&lt;img src=x onerror=alert(1)&gt;",
		},
		{
			name:     "Dangerous href removed",
			input:    `<a href="javascript:alert(1)" onclick="steal()">click</a>`,
			expected: "<a>click</a>",
		},
		{
			name:     "Tab inside scheme",
			input:    `<a href="java&#x09;script:alert(1)">x</a>`,
			expected: "<a>x</a>",
		},
		{
			name:     "Newline inside scheme",
			input:    `<a href="jav&#x0A;ascript:alert(1)">x</a>`,
			expected: "<a>x</a>",
		},
		{
			name:     "Leading control character",
			input:    `<a href="&#x01;javascript:alert(1)">x</a>`,
			expected: "<a>x</a>",
		},
		{
			name:     "Uppercase scheme",
			input:    `<a href=" JavaScript:alert(1)">x</a>`,
			expected: "<a>x</a>",
		},
		{
			name:     "Data and vbscript schemes",
			input:    `<a href="data:text/html,x">a</a><a href="vbscript:msgbox">b</a>`,
			expected: "<a>a</a><a>b</a>",
		},
		{
			name:     "Telegram, mail and relative links kept",
			input:    `<a href="tg://resolve?domain=durov">a</a><a href="mailto:a@b.c">b</a><a href="/durov/1">c</a>`,
			expected: `<a href="tg://resolve?domain=durov">a</a><a href="mailto:a@b.c">b</a><a href="/durov/1">c</a>`,
		},
		{
			name:     "Allowed attributes kept",
			input:    `<a href="https://t.me/durov" target="_blank" rel="noopener" data-x="1">link</a>`,
			expected: `<a href="https://t.me/durov" target="_blank" rel="noopener">link</a>`,
		},
		{
			name:     "Unknown tags unwrapped",
			input:    `<div><p>Para</p><img src="https://cdn/a.jpg"></div><blockquote expandable="">quote</blockquote>`,
			expected: `Para<blockquote expandable="">quote</blockquote>`,
		},
		{
			name:     "Whitespace trimmed and CRLF normalized",
			input:    "  \r\nLine one\r\nLine two\n  ",
			expected: "Line one\nLine two",
		},
		{
			name:     "Iframe dropped with content",
			input:    `before<iframe src="https://evil"></iframe>after`,
			expected: "beforeafter",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeContent(tt.input))
		})
	}
}

func TestSanitizeContent_Idempotent(t *testing.T) {
	input := `<b>bold</b> &amp; <a href="https://t.me/x">x</a><br>next`

	once := SanitizeContent(input)

	assert.Equal(t, once, SanitizeContent(once))
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "Tom &amp; Jerry &lt;3", SanitizeText("  Tom &amp; Jerry <3 "))
	assert.Equal(t, "", SanitizeText(""))
}
