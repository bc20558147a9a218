package mqtt

import (
	"fmt"
	"testing"
)

func msg(i int) bufferedMsg {
	return bufferedMsg{topic: TopicReadings, payload: []byte(fmt.Sprintf("m%d", i))}
}

func TestRingBufferFIFO(t *testing.T) {
	r := newRingBuffer(4)
	for i := 0; i < 3; i++ {
		r.push(msg(i))
	}
	if r.len() != 3 {
		t.Fatalf("len: got %d, want 3", r.len())
	}

	out := r.drainAll()
	for i, m := range out {
		if string(m.payload) != fmt.Sprintf("m%d", i) {
			t.Errorf("drain[%d]: got %q", i, m.payload)
		}
	}
	if r.len() != 0 {
		t.Errorf("buffer not empty after drain: %d", r.len())
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	r := newRingBuffer(3)
	for i := 0; i < 5; i++ {
		r.push(msg(i))
	}

	out := r.drainAll()
	if len(out) != 3 {
		t.Fatalf("expected 3 survivors, got %d", len(out))
	}
	// m0 and m1 were overwritten.
	want := []string{"m2", "m3", "m4"}
	for i, m := range out {
		if string(m.payload) != want[i] {
			t.Errorf("drain[%d]: got %q, want %q", i, m.payload, want[i])
		}
	}
}

func TestRingBufferDrainEmpty(t *testing.T) {
	r := newRingBuffer(2)
	if out := r.drainAll(); out != nil {
		t.Errorf("draining an empty buffer should return nil, got %v", out)
	}
}
