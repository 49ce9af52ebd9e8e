package email

import (
	"github.com/ptgott/litemail/compose"
	"github.com/ptgott/litemail/markup"
	"github.com/ptgott/litemail/transport"
	"github.com/rs/zerolog/log"
)

// Client sends mail through a single SMTP connection, opened by New. It is
// not safe for concurrent use. To send several messages at once, create one
// Client per message.
//
// Nothing a Client does returns an error: problems are collected in an error
// list (see Errors) and, once the list is non-empty, Send refuses to do
// anything else. Callers must Close the Client, which sends QUIT and closes
// the socket. You should defer this.
type Client struct {
	cfg         UserConfig
	diag        *transport.Diagnostics
	conn        *transport.Conn
	sender      compose.Sender
	recipients  compose.Recipients
	attachments compose.Attachments
	contentType compose.ContentType
	// pick the content type per message with markup.IsHTML
	autoType bool
	backup   bool
}

// New parses the sender and opens the connection described by uc. Blank
// settings get their defaults. An invalid sender address is recorded as an
// AddressError and no connection is attempted. A failed connection is
// recorded as a ConnectionError.
func New(uc UserConfig) *Client {
	cfg := uc.withDefaults()
	c := &Client{
		cfg:  cfg,
		diag: &transport.Diagnostics{},
	}
	c.ChangeContentType(cfg.ContentType)
	c.backup = cfg.BackupToSelf

	s, err := compose.ParseSender(cfg.From)
	if err != nil {
		c.diag.Append(transport.AddressError, err.Error())
	}
	c.sender = s

	host, port := transport.ParseServer(cfg.Server)
	c.conn = transport.Dial(transport.Config{
		Host:        host,
		Port:        port,
		Delimiter:   cfg.Delimiter,
		Debug:       cfg.Debug,
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	}, c.diag)

	return c
}

// Sender returns the parsed sender
func (c *Client) Sender() compose.Sender {
	return c.sender
}

// Authenticate greets the server and, if password isn't blank, logs in as
// account. Send calls this with the sender's address and the configured
// password if it hasn't run yet.
func (c *Client) Authenticate(account, password string) {
	c.conn.Authenticate(account, password)
}

// ChangeContentType sets the message text to plain for "text", picks one
// per message for "auto", and uses HTML otherwise.
func (c *Client) ChangeContentType(t string) {
	c.autoType = t == "auto"
	c.contentType = compose.ParseContentType(t)
}

// SetBackupToSelf turns blind-copying the sender on or off
func (c *Client) SetBackupToSelf(on bool) {
	c.backup = on
}

// ToggleBackupToSelf flips blind-copying the sender and returns the new
// setting
func (c *Client) ToggleBackupToSelf() bool {
	c.backup = !c.backup
	return c.backup
}

// AddRecipients appends addrs to the k list
func (c *Client) AddRecipients(k compose.RecipientKind, addrs ...string) {
	c.recipients.Add(k, addrs...)
}

// RemoveRecipients drops addrs from the given lists, or from all of them if
// no kinds are given
func (c *Client) RemoveRecipients(addrs []string, kinds ...compose.RecipientKind) {
	c.recipients.Remove(addrs, kinds...)
}

// ClearRecipients empties the given lists, or all of them if no kinds are
// given
func (c *Client) ClearRecipients(kinds ...compose.RecipientKind) {
	c.recipients.Clear(kinds...)
}

// Recipients returns a copy of the k list
func (c *Client) Recipients(k compose.RecipientKind) []string {
	return c.recipients.Get(k)
}

// AddAttachments registers files given as "name:path" or "path". A file
// that's missing (or over the size limit) is skipped and noted in the log.
// If stop is true, or the config asks to stop on missing attachments, the
// first such file also ends the call with an AttachmentError.
func (c *Client) AddAttachments(stop bool, specs ...string) error {
	for _, spec := range specs {
		a, err := c.attachments.Add(spec, c.cfg.MaxAttachmentSize)
		if err == nil {
			continue
		}
		log.Warn().
			Str("name", a.Name).
			Str("path", a.Path).
			Err(err).
			Msg("skipping an attachment")
		c.diag.Trace(err.Error())
		if stop || c.cfg.StopOnMissingAttachment {
			return &transport.Error{Kind: transport.AttachmentError, Msg: err.Error()}
		}
	}
	return nil
}

// RemoveAttachments drops attachments by display name
func (c *Client) RemoveAttachments(names ...string) {
	c.attachments.Remove(names...)
}

// ClearAttachments drops every attachment
func (c *Client) ClearAttachments() {
	c.attachments.Clear()
}

// Attachments returns the registered attachments in order
func (c *Client) Attachments() []compose.Attachment {
	return c.attachments.List()
}

// ResetMail goes back to HTML text without a blind copy to the sender, and
// drops every recipient and attachment.
func (c *Client) ResetMail() {
	c.ChangeContentType(defaultContentType)
	c.backup = false
	c.ClearRecipients()
	c.ClearAttachments()
}

// message snapshots the draft for rendering. Every message gets its own
// boundary.
func (c *Client) message(text string) compose.Message {
	ct := c.contentType
	if c.autoType {
		ct = compose.TextPlain
		if markup.IsHTML(text) {
			ct = compose.TextHTML
		}
	}
	return compose.Message{
		Sender:      c.sender,
		Recipients:  &c.recipients,
		Attachments: &c.attachments,
		ContentType: ct,
		Charset:     c.cfg.Charset,
		Delimiter:   c.cfg.Delimiter,
		Boundary:    compose.NewBoundary(),
	}
}

// sendRecipients issues RCPT TO for every address: the "to" list, then
// blind copies, then cc. Replies aren't checked.
func (c *Client) sendRecipients() {
	for _, r := range c.recipients.Envelope() {
		c.conn.SendCommand("RCPT TO:<"+r+">", "")
	}
}

// Send delivers a message with subject and text. If to isn't blank and not
// already a recipient, it goes to the front of the "to" list. Returns true
// if the error list is still empty afterwards.
//
// Nothing is sent if the "to" list is empty (recorded as "No Recipient!") or
// if an error was recorded earlier. Errors during the exchange don't stop or
// undo the commands that follow, except that the message itself is withheld
// if the server refuses DATA.
func (c *Client) Send(subject, text, to string) bool {
	if !c.conn.Authed() {
		c.Authenticate(c.sender.Address, c.cfg.Password)
	}

	if to != "" && !c.recipients.Contains(compose.To, to) {
		c.recipients.Prepend(compose.To, to)
	}

	if c.backup && !c.recipients.Contains(compose.Bc, c.sender.Address) {
		c.recipients.Add(compose.Bc, c.sender.Address)
	}

	if c.recipients.Len(compose.To) == 0 {
		c.diag.Append(transport.NoRecipientError, "No Recipient!")
	}

	if c.diag.Failed() {
		return false
	}

	m := c.message(text)
	header := m.Header(subject)
	body, err := m.Body(text)
	if err != nil {
		c.diag.Append(transport.AttachmentError, err.Error())
		return false
	}

	c.conn.SendCommand("MAIL FROM:<"+c.sender.Address+">", "250")
	c.sendRecipients()
	before := len(c.diag.Errors())
	c.conn.SendCommand("DATA", "354")
	if len(c.diag.Errors()) > before {
		// The server didn't agree to take the payload, so its lines would
		// be read as commands
		log.Debug().
			Strs("errors", c.diag.Errors()).
			Msg("not transmitting the message")
		return false
	}
	c.conn.SendCommand(header+body, "250")

	return !c.diag.Failed()
}

// Errors returns the error list. It's empty if nothing has gone wrong.
func (c *Client) Errors() []string {
	return c.diag.Errors()
}

// Err returns the error list as a single error, or nil if it's empty
func (c *Client) Err() error {
	return c.diag.Err()
}

// Log returns the trace of the conversation with the server, recorded when
// debugging, plus any attachment problems
func (c *Client) Log() []string {
	return c.diag.Log()
}

// Close sends QUIT and closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	return c.conn.Quit()
}
