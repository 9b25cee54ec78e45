package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	s := New()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "hello world", "hello world"},
		{"trims", "  spaced  ", "spaced"},
		{"strips tags", "<b>bold</b> move", "bold move"},
		{"drops scripts", `<script>alert("x")</script>hi`, "hi"},
		{"keeps ampersand readable", "Tom & Jerry", "Tom & Jerry"},
		{"strips encoded tags", "&lt;b&gt;x&lt;/b&gt;", "x"},
		{"drops encoded scripts", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"strips double encoded tags", "&amp;lt;i&amp;gt;hi", "hi"},
		{"decodes plain entities", "fish &amp; chips", "fish & chips"},
		{"markup only becomes empty", "<img src=x onerror=alert(1)>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Text(tt.in))
		})
	}
}

func TestList(t *testing.T) {
	s := New()
	got := s.List([]string{" go ", "<i></i>", "sql"})
	assert.Equal(t, []string{"go", "sql"}, got)
	assert.NotNil(t, s.List(nil))
}
