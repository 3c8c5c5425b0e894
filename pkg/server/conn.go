package server

// Conn is what the core needs from a transport: line I/O, the peer address
// used for blocking, and Close, which must unblock a pending ReadLine.
//
// Implementations live in pkg/netconn.
type Conn interface {
	ReadLine() (string, error)
	WriteLine(line string) error
	RemoteAddr() string
	Close() error
}
