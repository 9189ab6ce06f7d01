package consensus

import (
	"testing"
	"time"
)

func TestCheckLimitersFiresOnTxCount(t *testing.T) {
	s := Settings{MinTxCount: 5, MinBytes: 0, MaxElapsed: 0}
	if s.CheckLimiters(4, 0, 0) {
		t.Fatal("expected false below MinTxCount")
	}
	if !s.CheckLimiters(5, 0, 0) {
		t.Fatal("expected true at MinTxCount")
	}
}

func TestCheckLimitersFiresOnBytes(t *testing.T) {
	s := Settings{MinBytes: 1024}
	if s.CheckLimiters(0, 1023, 0) {
		t.Fatal("expected false below MinBytes")
	}
	if !s.CheckLimiters(0, 1024, 0) {
		t.Fatal("expected true at MinBytes")
	}
}

func TestCheckLimitersFiresOnElapsedTime(t *testing.T) {
	restore := nowNano
	defer func() { nowNano = restore }()

	const fakeNow = uint64(10 * time.Second)
	nowNano = func() uint64 { return fakeNow }

	s := Settings{MaxElapsed: 5 * time.Second}
	if s.CheckLimiters(0, 0, fakeNow-uint64(4*time.Second)) {
		t.Fatal("expected false before MaxElapsed has passed")
	}
	if !s.CheckLimiters(0, 0, fakeNow-uint64(5*time.Second)) {
		t.Fatal("expected true once MaxElapsed has passed")
	}
}

func TestCheckLimitersZeroSettingsNeverFires(t *testing.T) {
	s := Settings{}
	if s.CheckLimiters(1_000_000, 1_000_000, 0) {
		t.Fatal("expected false with every threshold disabled")
	}
}

func TestDefaultSettingsNonZero(t *testing.T) {
	s := DefaultSettings()
	if s.MinTxCount <= 0 || s.MinBytes <= 0 || s.MaxElapsed <= 0 {
		t.Fatalf("DefaultSettings has a non-positive threshold: %+v", s)
	}
}
