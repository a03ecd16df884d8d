package sequencer

import "fmt"

// Bank layout: 4 banks of 16 pattern slots, addressed either as
// (bank, slot) or as a flat index 0-63.
const (
	PatternsPerBank = 16
	NumBanks        = 4
	NumSlots        = PatternsPerBank * NumBanks
)

// BankSet is the addressable pattern store. Slots are optional (nil =
// empty). The playback engine never reads a BankSet directly; callers pull
// a single pattern out and hand it over.
type BankSet struct {
	Name  string             `json:"name"`
	Slots [NumSlots]*Pattern `json:"slots"`
}

// NewBankSet creates an empty bank set.
func NewBankSet(name string) *BankSet {
	return &BankSet{Name: name}
}

func slotIndex(bank, slot int) (int, error) {
	if bank < 0 || bank >= NumBanks {
		return 0, fmt.Errorf("bank %d out of range [0,%d)", bank, NumBanks)
	}
	if slot < 0 || slot >= PatternsPerBank {
		return 0, fmt.Errorf("slot %d out of range [0,%d)", slot, PatternsPerBank)
	}
	return bank*PatternsPerBank + slot, nil
}

// At returns the pattern at (bank, slot), or nil if the slot is empty or
// the address is out of range.
func (b *BankSet) At(bank, slot int) *Pattern {
	idx, err := slotIndex(bank, slot)
	if err != nil {
		return nil
	}
	return b.Slots[idx]
}

// AtIndex returns the pattern at a flat slot index 0-63.
func (b *BankSet) AtIndex(idx int) *Pattern {
	if idx < 0 || idx >= NumSlots {
		return nil
	}
	return b.Slots[idx]
}

// Save stores a pattern at (bank, slot), validating it first.
func (b *BankSet) Save(bank, slot int, p *Pattern) error {
	idx, err := slotIndex(bank, slot)
	if err != nil {
		return err
	}
	if p != nil {
		if err := p.Validate(); err != nil {
			return err
		}
	}
	b.Slots[idx] = p
	return nil
}

// Delete empties a slot.
func (b *BankSet) Delete(bank, slot int) error {
	idx, err := slotIndex(bank, slot)
	if err != nil {
		return err
	}
	b.Slots[idx] = nil
	return nil
}

// Move relocates a pattern between slots. Moving onto an occupied slot
// swaps the two patterns.
func (b *BankSet) Move(fromBank, fromSlot, toBank, toSlot int) error {
	from, err := slotIndex(fromBank, fromSlot)
	if err != nil {
		return err
	}
	to, err := slotIndex(toBank, toSlot)
	if err != nil {
		return err
	}
	b.Slots[from], b.Slots[to] = b.Slots[to], b.Slots[from]
	return nil
}

// ContentMask returns which flat slots hold a pattern.
func (b *BankSet) ContentMask() []bool {
	mask := make([]bool, NumSlots)
	for i, p := range b.Slots {
		mask[i] = p != nil
	}
	return mask
}
