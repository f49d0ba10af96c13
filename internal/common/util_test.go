package common

import (
	"errors"
	"fmt"
	"testing"
)

func TestWipeByteArray_ZerosBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	WipeByteArray(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("expected buf[%d]==0, got %d", i, v)
		}
	}
}

func TestWipeByteArray_NilSafe(t *testing.T) {
	WipeByteArray(nil)
}

func TestSentinels_MatchThroughWrapping(t *testing.T) {
	err := fmt.Errorf("resolve asset 7: %w", ErrIntegrity)
	if !errors.Is(err, ErrIntegrity) {
		t.Fatalf("expected wrapped ErrIntegrity to match")
	}
	if errors.Is(err, ErrTransport) {
		t.Fatalf("ErrIntegrity must not match ErrTransport")
	}
}

func TestMakeRandHexString(t *testing.T) {
	a, err := MakeRandHexString(32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(a))
	}
	b, _ := MakeRandHexString(32)
	if a == b {
		t.Fatalf("expected distinct values")
	}
}
