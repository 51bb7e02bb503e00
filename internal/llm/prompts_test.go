package llm

import "testing"

func TestStripFences(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
		{"```json\n{\n  \"classes\": []\n}\n```", "{\n  \"classes\": []\n}"},
	}
	for _, c := range cases {
		if got := StripFences(c.in); got != c.want {
			t.Errorf("StripFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
