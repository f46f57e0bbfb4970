package evm

import (
	"testing"
)

func TestNewValue_ArgumentOrder(t *testing.T) {
	tests := map[string]struct {
		args []uint64
		want Value
	}{
		"no arguments":  {nil, Value{}},
		"one argument":  {[]uint64{1}, Value{31: 1}},
		"two arguments": {[]uint64{1, 0}, Value{23: 1}},
		"full width":    {[]uint64{1, 2, 3, 4}, Value{7: 1, 15: 2, 23: 3, 31: 4}},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if want, got := test.want, NewValue(test.args...); want != got {
				t.Errorf("wanted %v, got %v", want, got)
			}
		})
	}
}

func TestValue_AddSubRoundTrip(t *testing.T) {
	a := NewValue(1, 2, 3, 4)
	b := NewValue(5, 6, 7, 8)
	if want, got := a, Sub(Add(a, b), b); want != got {
		t.Errorf("add/sub round trip failed, wanted %v, got %v", want, got)
	}
}

func TestValue_AddCarriesAcrossWords(t *testing.T) {
	a := NewValue(0, 0, 0, ^uint64(0))
	if want, got := NewValue(0, 0, 1, 0), Add(a, NewValue(1)); want != got {
		t.Errorf("carry not propagated, wanted %v, got %v", want, got)
	}
}

func TestValue_SubWrapsAround(t *testing.T) {
	if want, got := NewValue(^uint64(0), ^uint64(0), ^uint64(0), ^uint64(0)),
		Sub(NewValue(0), NewValue(1)); want != got {
		t.Errorf("underflow not wrapped, wanted %v, got %v", want, got)
	}
}

func TestValue_Scale(t *testing.T) {
	if want, got := NewValue(21_000), NewValue(1).Scale(21_000); want != got {
		t.Errorf("wanted %v, got %v", want, got)
	}
	if want, got := NewValue(0), NewValue(1, 0, 0, 0).Scale(0); want != got {
		t.Errorf("wanted %v, got %v", want, got)
	}
}

func TestAddress_TextRoundTrip(t *testing.T) {
	address := Address{0x01, 0xab, 19: 0xff}
	text, err := address.MarshalText()
	if err != nil {
		t.Fatalf("marshaling failed: %v", err)
	}
	var restored Address
	if err := restored.UnmarshalText(text); err != nil {
		t.Fatalf("unmarshaling failed: %v", err)
	}
	if address != restored {
		t.Errorf("round trip changed the address: %v != %v", address, restored)
	}
}

func TestGetStorageStatus(t *testing.T) {
	zero := Word{}
	x := Word{31: 1}
	y := Word{31: 2}
	z := Word{31: 3}

	tests := map[string]struct {
		original, current, new Word
		want                   StorageStatus
	}{
		"same value assigned":   {x, x, x, StorageAssigned},
		"fresh slot set":        {zero, zero, z, StorageAdded},
		"clean slot cleared":    {x, x, zero, StorageDeleted},
		"clean slot modified":   {x, x, z, StorageModified},
		"deleted slot re-set":   {x, zero, z, StorageDeletedAdded},
		"dirty slot cleared":    {x, y, zero, StorageModifiedDeleted},
		"deleted slot restored": {x, zero, x, StorageDeletedRestored},
		"added slot cleared":    {zero, y, zero, StorageAddedDeleted},
		"dirty slot restored":   {x, y, x, StorageModifiedRestored},
		"dirty slot re-dirtied": {x, y, z, StorageAssigned},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			if want, got := test.want, GetStorageStatus(test.original, test.current, test.new); want != got {
				t.Errorf("wanted %v, got %v", want, got)
			}
		})
	}
}

func TestSizeInWords(t *testing.T) {
	tests := map[uint64]uint64{
		0:          0,
		1:          1,
		32:         1,
		33:         2,
		64:         2,
		^uint64(0): 1 << 59,
	}
	for size, want := range tests {
		if got := SizeInWords(size); want != got {
			t.Errorf("size %d: wanted %d words, got %d", size, want, got)
		}
	}
}
