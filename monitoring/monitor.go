// Package monitoring turns a running set of connections into an HTTP server
// that external tooling can inspect and control.
package monitoring

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"

	"github.com/netweave/netweave/connection"
	"github.com/netweave/netweave/pipe"
)

// Monitor can turn a connection server into an HTTP endpoint and allows
// external inspection of per-connection supervision state.
type Monitor struct {
	portNumber int

	loopsLock sync.Mutex
	loops     []*connection.Loop
	loopByID  map[string]*connection.Loop
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		loopByID: make(map[string]*connection.Loop),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterConnection registers a connection loop to be monitored.
func (m *Monitor) RegisterConnection(l *connection.Loop) {
	m.loopsLock.Lock()
	defer m.loopsLock.Unlock()

	m.loops = append(m.loops, l)
	m.loopByID[l.ID()] = l
}

// UnregisterConnection removes a finished connection from the monitor.
func (m *Monitor) UnregisterConnection(l *connection.Loop) {
	m.loopsLock.Lock()
	defer m.loopsLock.Unlock()

	delete(m.loopByID, l.ID())

	kept := make([]*connection.Loop, 0, len(m.loops))
	for _, candidate := range m.loops {
		if candidate != l {
			kept = append(kept, candidate)
		}
	}

	m.loops = kept
}

// StartServer starts the monitor as a web server, on the configured port if
// one is set, on a random port otherwise.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()
	r.HandleFunc("/api/connections", m.listConnections)
	r.HandleFunc("/api/connection/{id}/idle_timeout", m.setIdleTimeout).
		Methods("POST")
	r.HandleFunc("/api/connection/{id}", m.connectionDetails)
	r.HandleFunc("/api/resource", m.listResources)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	fmt.Fprintf(
		os.Stderr,
		"Monitoring connections with http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		err = http.Serve(listener, r)
		dieOnErr(err)
	}()
}

func (m *Monitor) listConnections(w http.ResponseWriter, _ *http.Request) {
	m.loopsLock.Lock()
	ids := make([]string, 0, len(m.loops))
	for _, l := range m.loops {
		ids = append(ids, l.ID())
	}
	m.loopsLock.Unlock()

	err := json.NewEncoder(w).Encode(ids)
	dieOnErr(err)
}

func (m *Monitor) connectionDetails(w http.ResponseWriter, r *http.Request) {
	l := m.findConnectionOr404(w, mux.Vars(r)["id"])
	if l == nil {
		return
	}

	err := json.NewEncoder(w).Encode(l.Snapshot())
	dieOnErr(err)
}

func (m *Monitor) setIdleTimeout(w http.ResponseWriter, r *http.Request) {
	l := m.findConnectionOr404(w, mux.Vars(r)["id"])
	if l == nil {
		return
	}

	d, err := time.ParseDuration(r.URL.Query().Get("d"))
	if err != nil {
		w.WriteHeader(400)
		fmt.Fprintf(w, "Error: %s", err)

		return
	}

	l.PostCommand(pipe.NewSetIdleTimeoutCommand(d))
	w.WriteHeader(200)
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memInfo, err := proc.MemoryInfo()
	dieOnErr(err)

	fmt.Fprintf(w, "{\"cpu_percent\":%f,\"rss\":%d}",
		cpuPercent, memInfo.RSS)
}

func (m *Monitor) findConnectionOr404(
	w http.ResponseWriter,
	id string,
) *connection.Loop {
	m.loopsLock.Lock()
	l := m.loopByID[id]
	m.loopsLock.Unlock()

	if l == nil {
		w.WriteHeader(404)
		return nil
	}

	return l
}

func dieOnErr(err error) {
	if err != nil {
		panic(err)
	}
}
