package chainhash

import "testing"

func TestStringAndNewFromStrRoundTrip(t *testing.T) {
	var h Hash
	h[0] = 0xab
	h[HashSize-1] = 0xcd

	s := h.String()
	got, err := NewFromStr(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got != h {
		t.Fatalf("expected round trip to recover %v, got %v", h, *got)
	}
}

func TestNewFromStrRejectsWrongLength(t *testing.T) {
	if _, err := NewFromStr("ab"); err == nil {
		t.Fatal("expected an error for a too-short hex string")
	}
}

func TestNewFromStrOddLengthPadsLeadingZero(t *testing.T) {
	// 63 hex chars (odd) get a leading zero nibble, landing on exactly 32
	// bytes once padded, so this should decode successfully.
	hexStr := ""
	for i := 0; i < 63; i++ {
		hexStr += "a"
	}
	if _, err := NewFromStr(hexStr); err != nil {
		t.Fatalf("expected odd-length hex padded to 32 bytes to decode, got error: %v", err)
	}
}

func TestIsEqual(t *testing.T) {
	a := Hash{1}
	b := Hash{1}
	c := Hash{2}

	if !a.IsEqual(&b) {
		t.Fatal("expected equal hashes to compare equal")
	}
	if a.IsEqual(&c) {
		t.Fatal("expected different hashes to compare unequal")
	}
	if a.IsEqual(nil) {
		t.Fatal("expected a nil comparison to be false")
	}
}

func TestSetBytesRejectsWrongLength(t *testing.T) {
	var h Hash
	if err := h.SetBytes([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected an error for a short byte slice")
	}
}

func TestSetBytesCopies(t *testing.T) {
	var h Hash
	src := make([]byte, HashSize)
	src[0] = 0x42
	if err := h.SetBytes(src); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h[0] != 0x42 {
		t.Fatalf("expected byte copied, got %x", h[0])
	}
}

func TestLessOrdersByHighestByteFirst(t *testing.T) {
	a := Hash{}
	b := Hash{}
	a[HashSize-1] = 1
	b[HashSize-1] = 2

	if !a.Less(b) {
		t.Fatal("expected a to sort before b based on the highest-index byte")
	}
	if b.Less(a) {
		t.Fatal("expected b not to sort before a")
	}
}
