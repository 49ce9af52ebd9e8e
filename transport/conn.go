package transport

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// DefaultPort is used when the server address has no ":port" suffix
	DefaultPort int = 25

	// DefaultDelimiter terminates every command line. SMTP requires CRLF on
	// every platform.
	DefaultDelimiter string = "\r\n"

	// heloName is what we introduce ourselves as
	heloName string = "LITES"

	// Replies longer than this are cut off. The remainder of the line stays
	// in the read buffer and is taken as the reply to the next command.
	maxReplyLength int = 512
)

var portDigits = regexp.MustCompile(`^[0-9]{1,5}$`)

// Config describes how to reach the relay
type Config struct {
	Host string
	Port int
	// Written after every command
	Delimiter string
	// Record a SEND/RESP entry in the trace list for every command
	Debug bool
	// Zero means no limit beyond the operating system's
	DialTimeout time.Duration
	// Applied to each reply read. Zero means no limit.
	ReadTimeout time.Duration
}

// ParseServer splits an optional ":port" suffix off server. Without one, the
// port is DefaultPort. IPv6 hosts may be bracketed ("[::1]:2525", "[::1]") or
// bare ("::1", which can't carry a port); the host comes back without
// brackets either way.
func ParseServer(server string) (host string, port int) {
	if h, p, err := net.SplitHostPort(server); err == nil && portDigits.MatchString(p) {
		// Can't fail since the pattern only matches digits
		n, _ := strconv.Atoi(p)
		return h, n
	}
	if strings.HasPrefix(server, "[") && strings.HasSuffix(server, "]") {
		return server[1 : len(server)-1], DefaultPort
	}
	return server, DefaultPort
}

// Conn is a single blocking connection to an SMTP server. It is not safe for
// concurrent use: every command waits for its reply before returning. Callers
// must Close the Conn when they're done with it. You should defer this.
type Conn struct {
	conn   net.Conn
	reader *bufio.Reader
	cfg    Config
	diag   *Diagnostics
	authed bool
}

// Dial opens the socket described by cfg. If d already holds an error, no
// socket is opened. A failure to connect is recorded in d as a
// ConnectionError rather than returned, and every later call on the Conn is
// a no-op.
func Dial(cfg Config, d *Diagnostics) *Conn {
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Delimiter == "" {
		cfg.Delimiter = DefaultDelimiter
	}

	c := &Conn{
		cfg:  cfg,
		diag: d,
	}

	if d.Failed() {
		return c
	}

	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	if cfg.Debug {
		d.Trace(fmt.Sprintf("telnet %v %v", cfg.Host, cfg.Port))
	}

	nc, err := net.DialTimeout("tcp", addr, cfg.DialTimeout)
	if err != nil {
		log.Debug().
			Str("address", addr).
			Err(err).
			Msg("can't connect to the SMTP server")
		d.Appendf(ConnectionError, "Can't connect to %v with port:%v", cfg.Host, cfg.Port)
		return c
	}

	c.conn = nc
	c.reader = bufio.NewReaderSize(nc, maxReplyLength)
	return c
}

// isOpen reports whether the socket is still open
func (c *Conn) isOpen() bool {
	return c.conn != nil
}

// Authed reports whether Authenticate has run to completion
func (c *Conn) Authed() bool {
	return c.authed
}

// Authenticate reads the server greeting, introduces the client with HELO
// and, if password isn't blank, runs AUTH LOGIN with account and password.
// A mismatched reply code is recorded but doesn't stop the remaining
// commands from going out. Does nothing if an error has already been
// recorded.
func (c *Conn) Authenticate(account, password string) {
	if c.diag.Failed() || c.conn == nil {
		return
	}

	greeting, err := c.readReply()
	if err != nil {
		log.Debug().Err(err).Msg("no greeting from the SMTP server")
	} else if c.cfg.Debug {
		c.diag.Trace("RESP: " + greeting)
	}

	c.SendCommand("HELO "+heloName, "220,250")

	if password != "" {
		c.SendCommand("AUTH LOGIN", "334")
		c.SendCommand(base64.StdEncoding.EncodeToString([]byte(account)), "334")
		c.SendCommand(base64.StdEncoding.EncodeToString([]byte(password)), "235")
	}

	c.authed = true
}

// SendCommand writes command followed by the delimiter and reads one reply
// line, which it returns. If expected isn't blank, the reply code is checked
// against it with replyMatches and a mismatch is recorded as a
// ProtocolError. Callers pass comma-separated code lists like "220,250".
func (c *Conn) SendCommand(command string, expected string) string {
	if c.conn == nil {
		return ""
	}

	if _, err := c.conn.Write([]byte(command + c.cfg.Delimiter)); err != nil {
		c.diag.Appendf(ConnectionError, "Error: %v (write failed: %v)", command, err)
		return ""
	}

	reply, err := c.readReply()

	log.Debug().
		Str("send", command).
		Str("expected", expected).
		Str("resp", reply).
		Msg("smtp command")

	if c.cfg.Debug {
		c.diag.Trace(fmt.Sprintf(
			"SEND: %v (%v)%vRESP: %v",
			command,
			expected,
			c.cfg.Delimiter,
			reply,
		))
	}

	if expected == "" {
		return reply
	}

	if err != nil {
		c.diag.Appendf(ConnectionError, "Error: %v (no reply: %v)", command, err)
		return reply
	}

	code := reply
	if len(code) > 3 {
		code = code[:3]
	}
	if !replyMatches(code, expected) {
		c.diag.Appendf(ProtocolError, "Error: %v (Return: %v)", command, code)
	}

	return reply
}

// Quit sends QUIT without checking the reply and closes the socket. Safe to
// call more than once.
func (c *Conn) Quit() error {
	if c.conn == nil {
		return nil
	}
	c.SendCommand("QUIT", "")
	err := c.conn.Close()
	c.conn = nil
	c.reader = nil
	if err != nil {
		return fmt.Errorf("can't close the connection to %v: %v", c.cfg.Host, err)
	}
	return nil
}

// Close implements io.Closer by calling Quit
func (c *Conn) Close() error {
	return c.Quit()
}

// readReply reads a single reply line of at most maxReplyLength-1 bytes and
// strips the line terminator.
func (c *Conn) readReply() (string, error) {
	if c.cfg.ReadTimeout > 0 {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
			return "", err
		}
	}

	var b strings.Builder
	for b.Len() < maxReplyLength-1 {
		ch, err := c.reader.ReadByte()
		if err != nil {
			if b.Len() > 0 {
				break
			}
			return "", err
		}
		if ch == '\n' {
			break
		}
		b.WriteByte(ch)
	}

	return strings.TrimRight(b.String(), "\r"), nil
}
