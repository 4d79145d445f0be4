// Command client sends each line of stdin to a credential echo server with an explicit
// SCM_CREDENTIALS record and copies whatever the server echoes to stdout.
//
//	client <pathname>
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/johnsiilver/sockcred/ipc/uds"
	"github.com/johnsiilver/sockcred/network"
	"golang.org/x/sync/errgroup"
)

func main() {
	if len(os.Args) != 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <pathname>\n", os.Args[0])
		os.Exit(1)
	}

	client, err := uds.NewClient(os.Args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer client.Close()

	// The kernel only accepts our real ids unless we are privileged.
	cred := uds.Cred{PID: uds.ID(os.Getpid()), UID: uds.ID(os.Getuid()), GID: uds.ID(os.Getgid())}

	g := errgroup.Group{}
	g.Go(func() error {
		err := sendLines(os.Stdin, func(b []byte) error {
			return client.WriteCred(b, cred)
		})
		if err != nil {
			return err
		}
		return client.CloseWrite()
	})
	g.Go(func() error {
		_, err := io.Copy(os.Stdout, client)
		return err
	})

	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// sendLines calls send with every line of r, newline included. Lines are capped so that the
// line plus its newline fits in one server read.
func sendLines(r io.Reader, send func([]byte) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, network.MaxLine-1), network.MaxLine-1)
	for scanner.Scan() {
		line := scanner.Bytes()
		b := make([]byte, len(line)+1)
		copy(b, line)
		b[len(line)] = '\n'
		if err := send(b); err != nil {
			return err
		}
	}
	return scanner.Err()
}
