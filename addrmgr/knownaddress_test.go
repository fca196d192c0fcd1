package addrmgr

import (
	"testing"
	"time"

	"github.com/johnlito123/xuez-1/wire"
)

func TestIsBadNeverTriedRecentlyIsNotBad(t *testing.T) {
	ka := &KnownAddress{
		na:          &wire.NetAddress{Timestamp: time.Now()},
		lastattempt: time.Now(),
	}
	if ka.isBad() {
		t.Fatal("expected an address attempted within the last minute to be exempt from badness checks")
	}
}

func TestIsBadFromTheFuture(t *testing.T) {
	ka := &KnownAddress{
		na:          &wire.NetAddress{Timestamp: time.Now().Add(time.Hour)},
		lastattempt: time.Now().Add(-2 * time.Minute),
	}
	if !ka.isBad() {
		t.Fatal("expected a future-timestamped address to be bad")
	}
}

func TestIsBadStaleOverAMonth(t *testing.T) {
	ka := &KnownAddress{
		na:          &wire.NetAddress{Timestamp: time.Now().Add(-40 * 24 * time.Hour)},
		lastattempt: time.Now().Add(-2 * time.Minute),
	}
	if !ka.isBad() {
		t.Fatal("expected an address unseen for over a month to be bad")
	}
}

func TestIsBadNeverSucceededAfterRetries(t *testing.T) {
	ka := &KnownAddress{
		na:          &wire.NetAddress{Timestamp: time.Now()},
		lastattempt: time.Now().Add(-2 * time.Minute),
		attempts:    numRetries,
	}
	if !ka.isBad() {
		t.Fatal("expected an address that never succeeded after numRetries failures to be bad")
	}
}

func TestIsBadFreshAddressIsGood(t *testing.T) {
	ka := &KnownAddress{
		na:          &wire.NetAddress{Timestamp: time.Now()},
		lastattempt: time.Now().Add(-2 * time.Minute),
		lastsuccess: time.Now(),
	}
	if ka.isBad() {
		t.Fatal("expected a recently successful address to be good")
	}
}

func TestChanceDecreasesWithFailedAttempts(t *testing.T) {
	fresh := &KnownAddress{lastattempt: time.Now().Add(-time.Hour)}
	failed := &KnownAddress{lastattempt: time.Now().Add(-time.Hour), attempts: 3}

	if failed.chance() >= fresh.chance() {
		t.Fatalf("expected repeated failures to lower chance, fresh=%v failed=%v", fresh.chance(), failed.chance())
	}
}

func TestChanceDeprioritizesVeryRecentAttempts(t *testing.T) {
	recent := &KnownAddress{lastattempt: time.Now()}
	stale := &KnownAddress{lastattempt: time.Now().Add(-time.Hour)}

	if recent.chance() >= stale.chance() {
		t.Fatalf("expected a very recent attempt to be deprioritized, recent=%v stale=%v", recent.chance(), stale.chance())
	}
}
