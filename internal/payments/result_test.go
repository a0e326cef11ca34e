package payments

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"
)

func TestHashContent(t *testing.T) {
	got := HashContent("The quick brown fox")

	if !strings.HasPrefix(got, "0x") {
		t.Fatalf("hash %q missing 0x prefix", got)
	}
	if len(got) != 34 {
		t.Fatalf("hash length = %d, want 34 (0x + 32 hex chars)", len(got))
	}

	sum := sha256.Sum256([]byte("The quick brown fox"))
	want := "0x" + hex.EncodeToString(sum[:])[:32]
	if got != want {
		t.Fatalf("hash = %s, want %s", got, want)
	}

	if HashContent("The quick brown fox") != got {
		t.Fatal("hash not deterministic")
	}
	if HashContent("different content") == got {
		t.Fatal("distinct content collided")
	}
}

func TestSummaryPaidCount(t *testing.T) {
	s := Summary{Results: []PaymentResult{
		{OK: true},
		{Uncertain: true},
		{},
		{OK: true},
	}}
	if got := s.PaidCount(); got != 2 {
		t.Fatalf("paid count = %d, want 2", got)
	}
}

func TestSummarySucceeded(t *testing.T) {
	if !(Summary{}).Succeeded() {
		t.Fatal("clean summary not succeeded")
	}
	if (Summary{AnyFailures: true}).Succeeded() {
		t.Fatal("failed summary reported success")
	}
	if (Summary{AnyUncertain: true}).Succeeded() {
		t.Fatal("uncertain summary reported success")
	}
}
