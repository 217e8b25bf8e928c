package domain

import (
	"testing"
	"time"
)

func TestCardCloneIsDeep(t *testing.T) {
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	orig := Cards{{
		ID:           Committed("c1"),
		Labels:       []Label{{Name: "bug"}},
		MemberIDs:    []ID{Committed("u1")},
		CustomFields: []CustomFieldValue{{FieldID: Committed("f1"), Value: "1"}},
		Cover:        &Cover{Color: "red"},
		DueAt:        &due,
	}}

	cp := orig.Clone().(Cards)
	cp[0].Labels[0].Name = "feature"
	cp[0].MemberIDs[0] = Committed("u2")
	cp[0].CustomFields[0].Value = "2"
	cp[0].Cover.Color = "blue"
	*cp[0].DueAt = due.Add(time.Hour)

	c := orig[0]
	if c.Labels[0].Name != "bug" || c.MemberIDs[0] != Committed("u1") || c.CustomFields[0].Value != "1" {
		t.Fatalf("clone shares slices with original: %+v", c)
	}
	if c.Cover.Color != "red" || !c.DueAt.Equal(due) {
		t.Fatalf("clone shares pointers with original: %+v", c)
	}
}

func TestCardPatchApply(t *testing.T) {
	name := "renamed"
	c := Card{
		Name:         "old",
		Cover:        &Cover{Color: "red"},
		CustomFields: []CustomFieldValue{{FieldID: Committed("f1"), Value: "a"}, {FieldID: Committed("f2"), Value: "b"}},
	}
	p := CardPatch{
		Name:         &name,
		ClearCover:   true,
		CustomFields: []CustomFieldValue{{FieldID: Committed("f1"), Value: ""}, {FieldID: Committed("f3"), Value: "c"}},
	}
	if p.Empty() {
		t.Fatalf("patch should not be empty")
	}
	p.Apply(&c)

	if c.Name != "renamed" || c.Cover != nil {
		t.Fatalf("unexpected card: %+v", c)
	}
	if len(c.CustomFields) != 2 || c.CustomFields[0].FieldID != Committed("f2") || c.CustomFields[1].FieldID != Committed("f3") {
		t.Fatalf("unexpected custom fields: %+v", c.CustomFields)
	}
	if !(CardPatch{}).Empty() {
		t.Fatalf("zero patch must be empty")
	}
}
