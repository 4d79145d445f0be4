/*
Package network holds values shared by the servers in this module.
*/
package network

const (
	// MaxLine is the largest message a server reads or writes in one call.
	MaxLine = 4096

	// ListenQ is the default listen backlog.
	ListenQ = 1024
)
