package smtptest

import (
	"bufio"
	"net"
	"strings"
	"sync"
)

// Default replies by command verb. AUTH LOGIN continuation lines have no
// verb, so they're handled separately.
var defaultReplies = map[string]string{
	"HELO": "250 Hello",
	"EHLO": "250 Hello",
	"AUTH": "334 VXNlcm5hbWU6",
	"MAIL": "250 OK",
	"RCPT": "250 OK",
	"DATA": "354 End data with <CR><LF>.<CR><LF>",
	".":    "250 OK: queued",
	// reply to the password line of AUTH LOGIN
	"AUTH-PASSWORD": "235 Authentication succeeded",
	"QUIT":          "221 Bye",
	"RSET":          "250 OK",
	"NOOP":          "250 OK",
}

// ScriptedServer is a bare TCP server that answers each command line with a
// canned reply and records everything the client sent, so tests can assert
// on the exact command sequence. It understands just enough of SMTP to
// collect a DATA payload and to walk through AUTH LOGIN. You must initialize
// this via NewScriptedServer.
type ScriptedServer struct {
	// Greeting is written as soon as a client connects
	Greeting string
	// Replies overrides the default reply for a command verb, e.g.,
	// "DATA": "550 Denied". Use "." for the reply to a DATA payload and
	// "AUTH-PASSWORD" for the reply to the AUTH LOGIN password line.
	Replies map[string]string

	listener net.Listener
	mu       *sync.Mutex
	commands []string
	payloads []string
}

// NewScriptedServer listens on a random loopback port. Call Start to begin
// accepting connections and Close when the test is done.
func NewScriptedServer() (*ScriptedServer, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, err
	}
	return &ScriptedServer{
		Greeting: "220 localhost ESMTP ready",
		Replies:  map[string]string{},
		listener: l,
		mu:       &sync.Mutex{},
	}, nil
}

// Start accepts connections until Close is called. Blocking.
func (s *ScriptedServer) Start() error {
	for {
		c, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handle(c)
	}
}

// Close stops accepting connections. Connections already open end when the
// client quits or hangs up.
func (s *ScriptedServer) Close() {
	s.listener.Close()
}

// Address returns the host:port of the server
func (s *ScriptedServer) Address() string {
	return s.listener.Addr().String()
}

// Commands returns every line the client sent, in order, with a DATA payload
// recorded as a single entry.
func (s *ScriptedServer) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := make([]string, len(s.commands))
	copy(c, s.commands)
	return c
}

// Payloads returns the DATA payloads received, without the final "." line
func (s *ScriptedServer) Payloads() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := make([]string, len(s.payloads))
	copy(p, s.payloads)
	return p
}

func (s *ScriptedServer) record(cmd string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commands = append(s.commands, cmd)
}

func (s *ScriptedServer) reply(verb string) string {
	if r, ok := s.Replies[verb]; ok {
		return r
	}
	if r, ok := defaultReplies[verb]; ok {
		return r
	}
	return "500 Unrecognized command"
}

func (s *ScriptedServer) handle(c net.Conn) {
	defer c.Close()
	rd := bufio.NewReader(c)
	write := func(r string) bool {
		_, err := c.Write([]byte(r + "\r\n"))
		return err == nil
	}

	if !write(s.Greeting) {
		return
	}

	// Number of AUTH LOGIN continuation lines still expected
	authSteps := 0
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimRight(line, "\r\n")
		s.record(line)

		if authSteps > 0 {
			authSteps--
			r := "334 UGFzc3dvcmQ6"
			if authSteps == 0 {
				r = s.reply("AUTH-PASSWORD")
			}
			if !write(r) {
				return
			}
			continue
		}

		verb := strings.ToUpper(strings.SplitN(line, " ", 2)[0])
		r := s.reply(verb)
		if verb == "AUTH" && strings.HasPrefix(r, "334") {
			authSteps = 2
		}
		if !write(r) {
			return
		}

		switch {
		case verb == "QUIT":
			return
		case verb == "DATA" && strings.HasPrefix(r, "354"):
			if !s.readPayload(rd) {
				return
			}
			if !write(s.reply(".")) {
				return
			}
		}
	}
}

// readPayload collects lines up to the lone "." that ends a DATA payload.
// The line terminators the client used are kept.
func (s *ScriptedServer) readPayload(rd *bufio.Reader) bool {
	var b strings.Builder
	for {
		line, err := rd.ReadString('\n')
		if err != nil {
			return false
		}
		if strings.TrimRight(line, "\r\n") == "." {
			break
		}
		b.WriteString(line)
	}
	p := b.String()
	s.mu.Lock()
	s.commands = append(s.commands, p)
	s.payloads = append(s.payloads, p)
	s.mu.Unlock()
	return true
}
