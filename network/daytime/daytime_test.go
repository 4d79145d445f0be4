package daytime

import (
	"io/ioutil"
	"net"
	"testing"
	"time"
)

func TestServe(t *testing.T) {
	now := time.Date(2014, time.June, 8, 15, 37, 0, 0, time.UTC)

	s, err := New("127.0.0.1", "0", Clock(func() time.Time { return now }))
	if err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() {
		served <- s.Serve()
	}()

	for i := 0; i < 3; i++ {
		conn, err := net.Dial("tcp", s.Addr().String())
		if err != nil {
			t.Fatal(err)
		}
		// The server closes the connection after writing, so this returns.
		got, err := ioutil.ReadAll(conn)
		conn.Close()
		if err != nil {
			t.Fatal(err)
		}
		if want := "Sun Jun  8 15:37:00 2014\r\n"; string(got) != want {
			t.Errorf("TestServe: client %d: got %q, want %q", i, got, want)
		}
	}

	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	select {
	case err := <-served:
		if err != nil {
			t.Errorf("TestServe: Serve() after Close(): got %s, want nil", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("TestServe: Serve() did not return after Close()")
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		desc    string
		host    string
		service string
	}{
		{desc: "unknown service", host: "127.0.0.1", service: "no-such-service-name"},
		{desc: "port out of range", host: "127.0.0.1", service: "70000"},
	}

	for _, test := range tests {
		if s, err := New(test.host, test.service); err == nil {
			s.Close()
			t.Errorf("TestNewErrors(%s): got err == nil, want err != nil", test.desc)
		}
	}
}
