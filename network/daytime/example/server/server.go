// Command server is a daytime server.
//
//	server [flags] [<host>] <service or port>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"
	"github.com/johnsiilver/sockcred/network/daytime"
	"github.com/spf13/pflag"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] [<host>] <service or port>\n", os.Args[0])
	pflag.PrintDefaults()
}

func main() {
	pflag.CommandLine.AddGoFlagSet(flag.CommandLine)
	pflag.Usage = usage
	pflag.Parse()
	flag.CommandLine.Parse(nil)
	defer glog.Flush()

	var host, service string
	switch pflag.NArg() {
	case 1:
		service = pflag.Arg(0)
	case 2:
		host, service = pflag.Arg(0), pflag.Arg(1)
	default:
		usage()
		os.Exit(1)
	}

	s, err := daytime.New(host, service)
	if err != nil {
		glog.Exitf("%s", err)
	}
	glog.Infof("listening on %s", s.Addr())

	if err := s.Serve(); err != nil {
		glog.Exitf("%s", err)
	}
}
