package graph

import (
	"testing"

	"github.com/google/uuid"
)

func TestInstanceIDDeterministic(t *testing.T) {
	project := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	record := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	a := InstanceID(project, record, "Person")
	b := InstanceID(project, record, "Person")
	if a != b {
		t.Fatalf("same inputs must yield same id: %s vs %s", a, b)
	}
	if a == uuid.Nil {
		t.Fatal("instance id must not be nil")
	}
}

func TestInstanceIDVariesByInput(t *testing.T) {
	project := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	otherProject := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	record := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	otherRecord := uuid.MustParse("44444444-4444-4444-4444-444444444444")

	base := InstanceID(project, record, "Person")
	if base == InstanceID(otherProject, record, "Person") {
		t.Fatal("different projects must yield different ids")
	}
	if base == InstanceID(project, otherRecord, "Person") {
		t.Fatal("different records must yield different ids")
	}
	if base == InstanceID(project, record, "Company") {
		t.Fatal("different classes must yield different ids")
	}
}
