package main

import (
	"io"
	"log"
	"net"
	"os"

	"github.com/spf13/cobra"

	"github.com/netweave/netweave/connection"
	"github.com/netweave/netweave/envconf"
	"github.com/netweave/netweave/idle"
	"github.com/netweave/netweave/monitoring"
	"github.com/netweave/netweave/pipe"
	"github.com/netweave/netweave/recording"
	"github.com/netweave/netweave/timing"
)

var serveFlags = struct {
	listenAddr  string
	monitorPort int
	record      bool
}{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a TCP echo server with idle-timeout supervision.",
	RunE: func(_ *cobra.Command, _ []string) error {
		return serve()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.listenAddr,
		"listen", ":7070", "address to listen on")
	serveCmd.Flags().IntVar(&serveFlags.monitorPort,
		"monitor-port", 0, "monitoring server port, 0 picks a random port")
	serveCmd.Flags().BoolVar(&serveFlags.record,
		"record", false, "record connection closes into a SQLite database")

	rootCmd.AddCommand(serveCmd)
}

func serve() error {
	cfg, err := envconf.Load()
	if err != nil {
		return err
	}

	logger := log.New(os.Stderr, "netweave ", log.LstdFlags|log.Lmicroseconds)

	monitor := monitoring.NewMonitor().
		WithPortNumber(serveFlags.monitorPort)
	monitor.StartServer()

	var closeRecorder *recording.CloseRecorder
	if serveFlags.record {
		closeRecorder = recording.NewCloseRecorder(recording.New(""))
	}

	listener, err := net.Listen("tcp", serveFlags.listenAddr)
	if err != nil {
		return err
	}

	logger.Printf("listening on %s, idle timeout %s, reaping cycle %s",
		listener.Addr(), cfg.IdleTimeout, cfg.ReapingCycle)

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}

		startConnection(conn, cfg, logger, monitor, closeRecorder)
	}
}

func startConnection(
	conn net.Conn,
	cfg idle.Config,
	logger *log.Logger,
	monitor *monitoring.Monitor,
	closeRecorder *recording.CloseRecorder,
) {
	transport := &netTransport{conn: conn}
	handler := &echoHandler{}

	loop := connection.NewLoop(
		transport, handler, timing.SystemClock{},
		idle.NewStage(cfg, logger),
	)
	handler.loop = loop

	loop.AcceptHook(pipe.NewCloseLogger(logger))
	if closeRecorder != nil {
		loop.AcceptHook(closeRecorder)
	}

	loop.Start()
	monitor.RegisterConnection(loop)

	go readIntoLoop(conn, loop)
	go func() {
		<-loop.Done()
		monitor.UnregisterConnection(loop)
	}()
}

// readIntoLoop feeds the socket's inbound bytes into the connection loop
// and delivers the terminal close event when the socket dies.
func readIntoLoop(conn net.Conn, loop *connection.Loop) {
	buf := make([]byte, 32*1024)

	for {
		n, err := conn.Read(buf)
		if n > 0 {
			data := make([]byte, n)
			copy(data, buf[:n])
			loop.PostEvent(pipe.NewDataReceivedEvent(data))
		}

		if err != nil {
			reason := pipe.CloseReasonPeer
			if err != io.EOF {
				reason = pipe.CloseReasonLocal
			}

			loop.PostEvent(pipe.NewConnectionClosedEvent(reason))

			return
		}
	}
}

// netTransport adapts a net.Conn to the loop's Transport interface.
type netTransport struct {
	conn net.Conn
}

func (t *netTransport) Write(data []byte) error {
	_, err := t.conn.Write(data)
	return err
}

// Close tears the socket down. The reader goroutine observes the closure
// and reports it into the loop as a ConnectionClosedEvent.
func (t *netTransport) Close(_ pipe.CloseReason) error {
	return t.conn.Close()
}

// echoHandler writes every received payload back to the remote side.
type echoHandler struct {
	loop *connection.Loop
}

func (h *echoHandler) HandleEvent(evt pipe.Event) {
	if data, ok := evt.(*pipe.DataReceivedEvent); ok {
		h.loop.PostCommand(pipe.NewWriteCommand(data.Data))
	}
}
