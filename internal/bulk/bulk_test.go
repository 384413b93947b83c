package bulk

import "testing"

func TestAllocAndData(t *testing.T) {
	b := Alloc(5, nil)
	copy(b.Data(), []byte("hello"))
	if b.Len() != 5 {
		t.Fatalf("expected len 5, got %d", b.Len())
	}
	if string(b.Data()) != "hello" {
		t.Fatalf("expected hello, got %q", b.Data())
	}
}

func TestEmptyBulk(t *testing.T) {
	b := Alloc(0, nil)
	if b.Len() != 0 {
		t.Fatalf("expected len 0, got %d", b.Len())
	}
	if len(b.Data()) != 0 {
		t.Fatalf("expected empty data, got %v", b.Data())
	}
}

func TestRetainReleaseNilSafe(t *testing.T) {
	var b *Bulk
	b.Retain()
	b.Release()
	if b.Len() != 0 || b.Data() != nil {
		t.Fatalf("nil bulk should behave as empty")
	}
}

func TestCompare(t *testing.T) {
	a := FromBytes([]byte("abc"))
	b := FromBytes([]byte("abd"))
	if Compare(a, b) >= 0 {
		t.Fatalf("expected a < b")
	}
	c := FromBytes([]byte("ab"))
	if Compare(c, a) >= 0 {
		t.Fatalf("expected shorter common-prefix string to sort first")
	}
}

func TestEqual(t *testing.T) {
	a := FromBytes([]byte("k"))
	b := FromBytes([]byte("k"))
	if !Equal(a, b) {
		t.Fatalf("expected byte-equal bulks to compare equal")
	}
}

func TestPoolRoundTrip(t *testing.T) {
	p := NewPool()
	b := Alloc(10, p)
	copy(b.Data(), []byte("0123456789"))
	b.Release()

	b2 := Alloc(8, p)
	if b2.Len() != 8 {
		t.Fatalf("expected len 8 after pool reuse, got %d", b2.Len())
	}
}

func TestLargeBulk(t *testing.T) {
	b := Alloc(MaxLen, nil)
	if b.Len() != MaxLen {
		t.Fatalf("expected len %d, got %d", MaxLen, b.Len())
	}
}
