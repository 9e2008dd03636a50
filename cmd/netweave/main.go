// The netweave command runs a demo echo server with idle-timeout
// supervision on every connection.
package main

func main() {
	Execute()
}
