// Command server is a Unix domain socket echo server that logs the credentials of the
// process behind every message it receives.
//
//	server [flags] <pathname>
//
// Logs go through glog, use --logtostderr to see them on the terminal and -v=1 to include the
// peer's process name.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang/glog"
	"github.com/johnsiilver/sockcred/ipc/uds"
	"github.com/johnsiilver/sockcred/ipc/uds/echo"
	"github.com/johnsiilver/sockcred/ipc/uds/reaper"
	"github.com/johnsiilver/sockcred/network"
	"github.com/spf13/pflag"
)

var (
	backlog = pflag.Int("backlog", network.ListenQ, "The listen backlog")
	mode    = pflag.String("mode", "", "Octal file mode to set on the socket file, such as 0770")
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] <pathname>\n", os.Args[0])
	pflag.PrintDefaults()
}

func main() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Usage = usage
	pflag.Parse()
	// glog refuses to log until the Go flag set has been parsed.
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	if pflag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	opts := []uds.Option{uds.Backlog(*backlog)}
	if *mode != "" {
		m, err := strconv.ParseUint(*mode, 8, 32)
		if err != nil {
			fmt.Fprintf(os.Stderr, "--mode %q is not an octal file mode\n", *mode)
			os.Exit(1)
		}
		opts = append(opts, uds.FileMode(os.FileMode(m)))
	}

	serv, err := uds.NewServer(pflag.Arg(0), opts...)
	if err != nil {
		glog.Exitf("cannot listen on %s: %s", pflag.Arg(0), err)
	}

	r := reaper.New()
	go r.Run()

	// Serve only returns if the listener fails.
	if err := echo.Serve(serv, r); err != nil {
		glog.Exitf("%s", err)
	}
}
