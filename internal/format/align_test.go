package format

import "testing"

func TestAlignUp(t *testing.T) {
	cases := []struct {
		addr, align, want uintptr
	}{
		{0x1000, 8, 0x1000},
		{0x1001, 8, 0x1008},
		{0x1007, 8, 0x1008},
		{0x1001, 16, 0x1010},
		{0x1010, 4096, 0x2000},
		{0, 64, 0},
		{5, 1, 5},
	}
	for _, tc := range cases {
		if got := AlignUp(tc.addr, tc.align); got != tc.want {
			t.Fatalf("AlignUp(0x%x, %d) = 0x%x, want 0x%x", tc.addr, tc.align, got, tc.want)
		}
		if !IsAligned(AlignUp(tc.addr, tc.align), tc.align) {
			t.Fatalf("AlignUp(0x%x, %d) is not aligned", tc.addr, tc.align)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, x := range []uintptr{1, 2, 8, 4096, 1 << 40} {
		if !IsPowerOfTwo(x) {
			t.Fatalf("IsPowerOfTwo(%d) = false", x)
		}
	}
	for _, x := range []uintptr{0, 3, 6, 12, 4097} {
		if IsPowerOfTwo(x) {
			t.Fatalf("IsPowerOfTwo(%d) = true", x)
		}
	}
}

func TestWordCodec(t *testing.T) {
	b := make([]byte, 24)
	PutWord(b, 0, 0x0123456789abcdef)
	PutLink(b, 8, 0x1010)
	if b[0] != 0xef || b[7] != 0x01 {
		t.Fatalf("PutWord is not little-endian: % x", b[:8])
	}
	if got := ReadWord(b, 0); got != 0x0123456789abcdef {
		t.Fatalf("ReadWord = 0x%x", got)
	}
	if got := ReadLink(b, 8); got != 0x1010 {
		t.Fatalf("ReadLink = 0x%x", got)
	}
	if got := ReadLink(b, 16); got != NilLink {
		t.Fatalf("zeroed link should read as NilLink, got 0x%x", got)
	}
}
