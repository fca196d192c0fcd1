package orphan

import (
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/johnlito123/xuez-1/chainhash"
	"github.com/johnlito123/xuez-1/wire"
)

func hashFromByte(b byte) chainhash.Hash {
	var h chainhash.Hash
	h[0] = b
	return h
}

func txWithParent(txByte, parentByte byte) *wire.Tx {
	return &wire.Tx{
		Hash:         hashFromByte(txByte),
		InputParents: []chainhash.Hash{hashFromByte(parentByte)},
		SizeBytes:    100,
	}
}

func TestAddRejectsOversizedOrphan(t *testing.T) {
	p := New(10)
	tx := txWithParent(1, 2)
	tx.SizeBytes = maxOrphanTxSize + 1

	if p.Add(tx, 7) {
		t.Fatal("expected oversized orphan to be rejected")
	}
	if p.Len() != 0 {
		t.Fatalf("expected empty pool, got %d", p.Len())
	}
}

func TestAddRejectsDuplicate(t *testing.T) {
	p := New(10)
	tx := txWithParent(1, 2)

	if !p.Add(tx, 7) {
		t.Fatal("expected first add to succeed")
	}
	if p.Add(tx, 9) {
		t.Fatal("expected duplicate add to fail")
	}
	if p.Len() != 1 {
		t.Fatalf("expected pool size 1, got %d", p.Len())
	}
}

func TestEvictionAtCapacity(t *testing.T) {
	p := New(5)
	for i := byte(0); i < 6; i++ {
		if !p.Add(txWithParent(i, 100), 1) {
			t.Fatalf("add %d failed unexpectedly", i)
		}
	}
	if p.Len() != 5 {
		t.Logf("pool state at failure:\n%s", spew.Sdump(p))
		t.Fatalf("expected pool to settle back at cap 5, got %d", p.Len())
	}
}

func TestDependentsOfAndErase(t *testing.T) {
	p := New(10)
	parent := hashFromByte(9)
	child := txWithParent(1, 9)
	p.Add(child, 3)

	deps := p.DependentsOf(parent)
	if len(deps) != 1 || deps[0] != child.Hash {
		t.Fatalf("expected [%s], got %v", child.Hash, deps)
	}

	p.Erase(child.Hash)
	if _, ok := p.Get(child.Hash); ok {
		t.Fatal("expected orphan to be gone after Erase")
	}
	if deps := p.DependentsOf(parent); len(deps) != 0 {
		t.Fatalf("expected no dependents after erase, got %v", deps)
	}
}

func TestEraseForPeer(t *testing.T) {
	p := New(10)
	p.Add(txWithParent(1, 100), 1)
	p.Add(txWithParent(2, 100), 1)
	p.Add(txWithParent(3, 100), 2)

	erased := p.EraseForPeer(1)
	if erased != 2 {
		t.Fatalf("expected 2 erased, got %d", erased)
	}
	if p.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", p.Len())
	}
	if _, ok := p.Get(hashFromByte(3)); !ok {
		t.Fatal("expected peer-2 orphan to survive")
	}
}
