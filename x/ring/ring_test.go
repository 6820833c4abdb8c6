package ring

import (
	"testing"
)

func TestOrderAcrossWrapWithPartialProgress(t *testing.T) {
	r := New(64)

	const N = 2000
	src := make([]byte, N)
	for i := range src {
		src[i] = byte(i)
	}

	dst := make([]byte, 0, N)
	in := 0
	for len(dst) < N {
		// Producer manages at most 7 bytes per round, consumer at most 17.
		for k := 0; k < 7 && in < N && r.Push(src[in]); k++ {
			in++
		}
		for k := 0; k < 17; k++ {
			b, ok := r.Pop()
			if !ok {
				break
			}
			dst = append(dst, b)
		}
	}

	for i := 0; i < N; i++ {
		if dst[i] != src[i] {
			t.Fatalf("mismatch at %d: got=%d want=%d", i, dst[i], src[i])
		}
	}
}

func TestPushPopFullEmpty(t *testing.T) {
	r := New(4)
	if !r.Empty() || r.Full() {
		t.Fatal("new ring should be empty")
	}
	for i := 0; i < 4; i++ {
		if !r.Push(byte('a' + i)) {
			t.Fatalf("push %d rejected", i)
		}
	}
	if !r.Full() || r.Space() != 0 {
		t.Fatalf("expected full, len=%d", r.Len())
	}
	if r.Push('z') {
		t.Fatal("push into full ring accepted")
	}
	for i := 0; i < 4; i++ {
		b, ok := r.Pop()
		if !ok || b != byte('a'+i) {
			t.Fatalf("pop %d = %q,%v", i, b, ok)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Fatal("pop from empty ring succeeded")
	}
}

func TestReset(t *testing.T) {
	r := New(8)
	for _, b := range []byte("abcde") {
		r.Push(b)
	}
	r.Reset()
	if r.Len() != 0 || r.Space() != 8 {
		t.Fatalf("after reset len=%d space=%d", r.Len(), r.Space())
	}
	r.Push('x')
	if b, _ := r.Pop(); b != 'x' {
		t.Fatalf("got %q after reset", b)
	}
}

func TestNewRejectsBadSize(t *testing.T) {
	for _, n := range []int{0, 1, 3, 12} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("New(%d) did not panic", n)
				}
			}()
			New(n)
		}()
	}
}
