// Package comm provides the message passing used between ranks.
//
// Exchanges are synchronous: [Comm.SendRecv] returns only when the peer
// has received the message, and every rank must enter a collective such
// as [Comm.AllReduce] before any of them leaves it. [NewLocalWorld] runs
// all ranks as goroutines of one process.
package comm
