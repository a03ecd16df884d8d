package store

import (
	"testing"

	"go-pulse/sequencer"
)

func TestRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	bank := sequencer.NewBankSet("live set")
	p := sequencer.NewPattern("kick", 16)
	p.Color = [3]uint8{250, 186, 68}
	p.Tracks[0].Notes = []sequencer.StepNote{
		{Step: 0, Note: 36, Velocity: 110, Duration: 1},
		{Step: 8, Note: 36, Velocity: 90, Duration: 0.5},
	}
	if err := bank.Save(2, 5, p); err != nil {
		t.Fatal(err)
	}

	if err := Save("set-a", bank); err != nil {
		t.Fatal(err)
	}

	names, err := List()
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 1 || names[0] != "set-a" {
		t.Fatalf("List() = %v, want [set-a]", names)
	}

	loaded, err := Load("set-a")
	if err != nil {
		t.Fatal(err)
	}
	got := loaded.At(2, 5)
	if got == nil {
		t.Fatal("loaded bank lost the pattern")
	}
	if got.Name != "kick" || len(got.Tracks[0].Notes) != 2 || got.Tracks[0].Notes[1].Duration != 0.5 {
		t.Errorf("loaded pattern differs: %+v", got)
	}

	if err := Delete("set-a"); err != nil {
		t.Fatal(err)
	}
	if names, _ := List(); len(names) != 0 {
		t.Errorf("List after delete = %v, want empty", names)
	}
}

func TestBadNames(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	for _, name := range []string{"", "../escape", "a/b"} {
		if err := Save(name, sequencer.NewBankSet("x")); err == nil {
			t.Errorf("Save(%q) accepted", name)
		}
		if _, err := Load(name); err == nil {
			t.Errorf("Load(%q) accepted", name)
		}
	}
}

func TestLoadRejectsInvalidPatterns(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	bank := sequencer.NewBankSet("x")
	if err := Save("x", bank); err != nil {
		t.Fatal(err)
	}
	// Corrupt the snapshot on the struct level: bypass BankSet.Save's
	// validation by writing the slot directly.
	bank.Slots[0] = &sequencer.Pattern{Name: "broken", StepCount: 0}
	if err := Save("x", bank); err != nil {
		t.Fatal(err)
	}
	if _, err := Load("x"); err == nil {
		t.Error("Load accepted a bank with an invalid pattern")
	}
}
