package session

import (
	"net"
	"testing"
)

func TestSession_CloseIsIdempotent(t *testing.T) {
	a, b := net.Pipe()
	defer b.Close()

	s := New(a, "pipe")
	if s.Closed() {
		t.Fatal("new session should not be closed")
	}

	first := s.Close()
	second := s.Close()
	if first != second {
		t.Errorf("second Close returned %v, want %v", second, first)
	}
	if !s.Closed() {
		t.Error("session should report closed")
	}

	if _, err := a.Write([]byte("x")); err == nil {
		t.Error("write on closed session conn should fail")
	}
}

func TestSession_IDs(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	s1 := New(a, "pipe")
	s2 := New(b, "pipe")
	if s1.ID == s2.ID {
		t.Error("sessions should get distinct IDs")
	}
	if len(s1.ShortID()) != 8 {
		t.Errorf("ShortID = %q, want 8 chars", s1.ShortID())
	}
}

func TestSession_Traffic(t *testing.T) {
	a, b := net.Pipe()
	defer a.Close()
	defer b.Close()

	s := New(a, "pipe")
	s.AddIn(10)
	s.AddOut(4)
	s.AddIn(5)

	in, out := s.Traffic()
	if in != 15 || out != 4 {
		t.Errorf("traffic = (%d, %d), want (15, 4)", in, out)
	}
}
