package main

import (
	"bufio"
	"errors"
	"strings"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/johnsiilver/sockcred/network"
)

func TestSendLines(t *testing.T) {
	longest := strings.Repeat("x", network.MaxLine-2)

	tests := []struct {
		desc    string
		in      string
		want    []string
		wantErr error
	}{
		{
			desc: "lines get their newline back",
			in:   "a\nbb\n\nccc",
			want: []string{"a\n", "bb\n", "\n", "ccc\n"},
		},
		{
			desc: "longest line fits one server read",
			in:   longest + "\n",
			want: []string{longest + "\n"},
		},
		{
			desc:    "line too long",
			in:      strings.Repeat("x", network.MaxLine) + "\n",
			wantErr: bufio.ErrTooLong,
		},
	}

	for _, test := range tests {
		var got [][]byte
		err := sendLines(strings.NewReader(test.in), func(b []byte) error {
			if len(b) > network.MaxLine {
				t.Errorf("TestSendLines(%s): sent %d bytes, more than %d", test.desc, len(b), network.MaxLine)
			}
			got = append(got, b)
			return nil
		})
		if !errors.Is(err, test.wantErr) {
			t.Errorf("TestSendLines(%s): got err %v, want %v", test.desc, err, test.wantErr)
			continue
		}
		if test.wantErr != nil {
			continue
		}

		var gotStr []string
		for _, b := range got {
			gotStr = append(gotStr, string(b))
		}
		if diff := pretty.Compare(test.want, gotStr); diff != "" {
			t.Errorf("TestSendLines(%s): -want/+got:\n%s", test.desc, diff)
		}
	}
}
