package smtptest

import (
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
)

// doubtful we'll get an email this big, but we need a limit
const maxEmailSize int64 = 100 * units.MiB

// Message is an email received by an InProcessServer
type Message struct {
	Created time.Time
	// Envelope sender and recipients, in the order the client sent them
	From string
	To   []string
	// Everything after DATA, with CRLF line endings turned into LF
	Body string
}

// Backend implements smtp.Backend. It's a thin authentication wrapper
// for an InMemoryEmailStore.
type Backend struct {
	*InMemoryEmailStore
	username string
	password string
}

// Login implements smtp.Backend. Only the credentials the server was created
// with are accepted.
func (be *Backend) Login(_ *smtp.ConnectionState, username string, password string) (smtp.Session, error) {
	if username == "" || password == "" {
		return nil, errors.New("no username or password provided")
	}
	if username != be.username || password != be.password {
		return nil, errors.New("invalid username or password")
	}
	return &session{store: be.InMemoryEmailStore}, nil
}

// AnonymousLogin implements smtp.Backend. Allowed only if the server was
// created without credentials.
func (be *Backend) AnonymousLogin(_ *smtp.ConnectionState) (smtp.Session, error) {
	if be.username != "" {
		return nil, smtp.ErrAuthRequired
	}
	return &session{store: be.InMemoryEmailStore}, nil
}

// session implements smtp.Session, collecting the envelope of the message
// in progress
type session struct {
	store *InMemoryEmailStore
	from  string
	to    []string
}

// Reset implements smtp.Session
func (s *session) Reset() {
	s.from = ""
	s.to = nil
}

// Logout implements smtp.Session. No-op here.
func (s *session) Logout() error { return nil }

// Mail implements smtp.Session
func (s *session) Mail(from string, _ smtp.MailOptions) error {
	s.from = from
	return nil
}

// Rcpt implements smtp.Session
func (s *session) Rcpt(to string) error {
	s.to = append(s.to, to)
	return nil
}

// Data implements smtp.Session. Stores the email in memory for retrieval
// at the end of the test.
func (s *session) Data(r io.Reader) error {
	buf, err := io.ReadAll(io.LimitReader(r, maxEmailSize))
	if err != nil {
		return err
	}

	str := &strings.Builder{}
	if _, err := str.Write(buf); err != nil {
		return err
	}
	to := make([]string, len(s.to))
	copy(to, s.to)
	s.store.saveEmail(Message{
		From: s.from,
		To:   to,
		Body: str.String(),
	})
	return nil
}

// InMemoryEmailStore retains received messages in memory for comparison
// against a test's expected output.
// Designed to be goroutine safe since we don't know how many goroutines will
// be hitting the server at once.
type InMemoryEmailStore struct {
	mu       *sync.Mutex
	messages []Message
}

// saveEmail stores the message along with a timestamp created just prior to
// saving
func (es *InMemoryEmailStore) saveEmail(m Message) {
	es.mu.Lock()
	defer es.mu.Unlock()

	m.Created = time.Now()
	es.messages = append(es.messages, m)
}

// RetrieveEmails returns a slice of all message bodies (as strings)
// received after epoch nanoseconds t
func (es *InMemoryEmailStore) RetrieveEmails(t int64) ([]string, error) {
	es.mu.Lock()
	defer es.mu.Unlock()

	r := make([]string, 0, len(es.messages))
	for _, m := range es.messages {
		if m.Created.UnixNano() >= t {
			r = append(r, m.Body)
		}
	}
	return r, nil
}

// Messages returns every message received so far
func (es *InMemoryEmailStore) Messages() []Message {
	es.mu.Lock()
	defer es.mu.Unlock()

	m := make([]Message, len(es.messages))
	copy(m, es.messages)
	return m
}

// InProcessServer is an SMTP server that runs in the same process as the
// test suite, letting us inspect sent emails. You must initialize this
// via NewInProcessServer
type InProcessServer struct {
	*smtp.Server
	*InMemoryEmailStore
	listener net.Listener
}

// NewInProcessServer creates an InProcessServer listening on a random
// loopback port, including configuring its SMTP server to store incoming
// messages in memory. If username is not blank, clients must AUTH LOGIN with
// username and password before sending. AUTH is allowed without TLS.
func NewInProcessServer(username, password string) (*InProcessServer, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}

	is := &InMemoryEmailStore{
		mu:       &sync.Mutex{},
		messages: []Message{},
	}
	be := &Backend{
		InMemoryEmailStore: is,
		username:           username,
		password:           password,
	}

	srv := smtp.NewServer(be)
	srv.Domain = "localhost"
	srv.AllowInsecureAuth = true
	srv.AuthDisabled = false
	srv.MaxMessageBytes = int(maxEmailSize)
	// Strict is undocumented, but it looks like it enforces <address> syntax
	// in messages:
	// https://github.com/emersion/go-smtp/blob/f92bf7f1a25777bcdaa28a142b1cd1a54b74c8f4/conn.go#L321-L325
	srv.Strict = true

	srv.EnableAuth(sasl.Login, func(conn *smtp.Conn) sasl.Server {
		return sasl.NewLoginServer(func(username, password string) error {
			state := conn.State()
			s, err := be.Login(&state, username, password)
			if err != nil {
				return err
			}
			conn.SetSession(s)
			return nil
		})
	})

	return &InProcessServer{
		Server:             srv,
		InMemoryEmailStore: is,
		listener:           l,
	}, nil
}

// Start starts the test server. Blocking.
func (is *InProcessServer) Start() error {
	return is.Server.Serve(is.listener)
}

// Close shuts down the test server daemon. You must initialize a new
// InProcessServer instead of restarting this one.
func (is *InProcessServer) Close() {
	is.Server.Close()
	is.listener.Close()
}

// Address returns the host:port of the test SMTP server.
func (is *InProcessServer) Address() string {
	return is.listener.Addr().String()
}
