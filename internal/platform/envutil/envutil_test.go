package envutil

import "testing"

func TestGetEnvAsBool(t *testing.T) {
	cases := []struct {
		value    string
		fallback bool
		want     bool
	}{
		{"", true, true},
		{"", false, false},
		{"1", false, true},
		{"true", false, true},
		{"YES", false, true},
		{"on", false, true},
		{"0", true, false},
		{"false", true, false},
		{"no", true, false},
		{"off", true, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}
	for _, c := range cases {
		t.Setenv("ENVUTIL_TEST_BOOL", c.value)
		if got := GetEnvAsBool("ENVUTIL_TEST_BOOL", c.fallback, nil); got != c.want {
			t.Errorf("GetEnvAsBool(%q, %v) = %v, want %v", c.value, c.fallback, got, c.want)
		}
	}
}
