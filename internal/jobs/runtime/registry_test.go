package runtime

import "testing"

type stubHandler struct{ kind string }

func (h *stubHandler) Kind() string       { return h.kind }
func (h *stubHandler) Run(*Context) error { return nil }

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	h := &stubHandler{kind: "extract"}
	if err := r.Register(h); err != nil {
		t.Fatalf("register: %v", err)
	}
	got, ok := r.Get("extract")
	if !ok || got != h {
		t.Fatalf("expected registered handler, got %v ok=%v", got, ok)
	}
	if _, ok := r.Get("unknown"); ok {
		t.Fatal("unknown kind should not resolve")
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubHandler{kind: "query"}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(&stubHandler{kind: "query"}); err == nil {
		t.Fatal("duplicate registration must fail")
	}
}

func TestRegistryRejectsNilAndEmpty(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(nil); err == nil {
		t.Fatal("nil handler must fail")
	}
	if err := r.Register(&stubHandler{}); err == nil {
		t.Fatal("empty kind must fail")
	}
}
