package encoding

import "testing"

func TestEscapeXML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "hello", "hello"},
		{"ampersand", "a & b", "a &amp; b"},
		{"angle brackets", "<p>", "&lt;p&gt;"},
		{"quotes", `say "hi"`, "say &#34;hi&#34;"},
		{"unicode untouched", "hüvasti", "hüvasti"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EscapeXML(tt.input); got != tt.want {
				t.Errorf("EscapeXML(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestEscapeXMLText(t *testing.T) {
	got := EscapeXMLText(`<a href="x">&</a>`)
	want := `&lt;a href="x"&gt;&amp;&lt;/a&gt;`
	if got != want {
		t.Errorf("EscapeXMLText() = %q, want %q", got, want)
	}
}

func TestEscapeXMLAttr(t *testing.T) {
	got := EscapeXMLAttr(`"quoted" & <tagged>`)
	want := `&quot;quoted&quot; &amp; &lt;tagged&gt;`
	if got != want {
		t.Errorf("EscapeXMLAttr() = %q, want %q", got, want)
	}
}
