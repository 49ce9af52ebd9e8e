package email

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ptgott/litemail/compose"
	"github.com/ptgott/litemail/smtptest"
	"github.com/ptgott/litemail/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient starts a ScriptedServer with the given reply overrides and
// returns it with a Client connected to it as from
func scriptedClient(t *testing.T, from string, replies map[string]string) (*smtptest.ScriptedServer, *Client) {
	t.Helper()
	srv, err := smtptest.NewScriptedServer()
	require.NoError(t, err)
	for k, v := range replies {
		srv.Replies[k] = v
	}
	go srv.Start()
	t.Cleanup(srv.Close)

	c := New(UserConfig{
		Server:      srv.Address(),
		From:        from,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 5 * time.Second,
	})
	t.Cleanup(func() { c.Close() })
	return srv, c
}

// payloadParts splits a DATA payload into its header and body text
func payloadParts(t *testing.T, payload string) (string, string) {
	t.Helper()
	s := strings.SplitN(payload, "\r\n\r\n", 2)
	require.Len(t, s, 2, "expecting a blank line after the headers")
	return s[0], s[1]
}

func TestNewWithInvalidSender(t *testing.T) {
	srv, c := scriptedClient(t, "nobody", nil)

	assert.Equal(t, []string{"nobody is not a valid email address!"}, c.Errors())
	assert.True(t, transport.IsKind(c.Err(), transport.AddressError))

	c.AddRecipients(compose.To, "b@y.com")
	assert.False(t, c.Send("Hi", "Hello", ""))
	require.NoError(t, c.Close())

	// no socket was ever opened
	assert.Empty(t, srv.Commands())
	assert.Len(t, c.Errors(), 1)
}

func TestNewParsesDisplayName(t *testing.T) {
	_, c := scriptedClient(t, "Name:addr@x.com", nil)
	assert.Empty(t, c.Errors())
	assert.Equal(t, compose.Sender{Name: "Name", Address: "addr@x.com"}, c.Sender())
}

func TestNewConnectionFailure(t *testing.T) {
	srv, err := smtptest.NewScriptedServer()
	require.NoError(t, err)
	addr := srv.Address()
	srv.Close()

	c := New(UserConfig{Server: addr, From: "a@x.com", DialTimeout: time.Second})
	defer c.Close()

	require.Len(t, c.Errors(), 1)
	assert.True(t, strings.HasPrefix(c.Errors()[0], "Can't connect to 127.0.0.1 with port:"))
	assert.False(t, c.Send("Hi", "Hello", "b@y.com"))
}

func TestSendScenario(t *testing.T) {
	srv, c := scriptedClient(t, "a@x.com", nil)

	ok := c.Send("Hi", "Hello", "b@y.com")
	require.True(t, ok, "errors: %v", c.Errors())
	require.NoError(t, c.Close())

	cmds := srv.Commands()
	require.Len(t, cmds, 6)
	assert.Equal(t, []string{
		"HELO LITES",
		"MAIL FROM:<a@x.com>",
		"RCPT TO:<b@y.com>",
		"DATA",
	}, cmds[:4])
	assert.Equal(t, "QUIT", cmds[5])

	header, body := payloadParts(t, cmds[4])
	assert.Contains(t, header, "To: b@y.com\r\n")
	assert.Contains(t, header, "From: a@x.com\r\n")
	assert.Contains(t, header, "Subject: =?UTF-8?B?SGk=?=\r\n")

	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body, "\r\n", ""))
	require.NoError(t, err)
	assert.Equal(t, "Hello", string(decoded))
}

func TestSendWithPasswordAuthenticates(t *testing.T) {
	srv, err := smtptest.NewScriptedServer()
	require.NoError(t, err)
	go srv.Start()
	defer srv.Close()

	c := New(UserConfig{
		Server:      srv.Address(),
		From:        "a@x.com",
		Password:    "secret",
		ReadTimeout: 5 * time.Second,
	})
	require.True(t, c.Send("Hi", "Hello", "b@y.com"), "errors: %v", c.Errors())
	require.NoError(t, c.Close())

	cmds := srv.Commands()
	assert.Equal(t, []string{
		"HELO LITES",
		"AUTH LOGIN",
		base64.StdEncoding.EncodeToString([]byte("a@x.com")),
		base64.StdEncoding.EncodeToString([]byte("secret")),
		"MAIL FROM:<a@x.com>",
	}, cmds[:5])
}

func TestSendAuthenticatesOnce(t *testing.T) {
	srv, c := scriptedClient(t, "a@x.com", nil)

	require.True(t, c.Send("One", "first", "b@y.com"))
	require.True(t, c.Send("Two", "second", ""))
	require.NoError(t, c.Close())

	helos := 0
	for _, cmd := range srv.Commands() {
		if cmd == "HELO LITES" {
			helos++
		}
	}
	assert.Equal(t, 1, helos)
	assert.Len(t, srv.Payloads(), 2)
}

func TestSendWithoutRecipients(t *testing.T) {
	srv, c := scriptedClient(t, "a@x.com", nil)

	assert.False(t, c.Send("Hi", "Hello", ""))
	assert.Equal(t, []string{"No Recipient!"}, c.Errors())
	assert.True(t, transport.IsKind(c.Err(), transport.NoRecipientError))
	require.NoError(t, c.Close())

	// the greeting happens, nothing else
	assert.Equal(t, []string{"HELO LITES", "QUIT"}, srv.Commands())
}

func TestSendRecipientArgument(t *testing.T) {
	_, c := scriptedClient(t, "a@x.com", nil)
	c.AddRecipients(compose.To, "first@y.com")

	require.True(t, c.Send("Hi", "Hello", "second@y.com"))
	assert.Equal(t, []string{"second@y.com", "first@y.com"}, c.Recipients(compose.To))

	// already present, so not added again
	require.True(t, c.Send("Hi", "Hello", "first@y.com"))
	assert.Equal(t, []string{"second@y.com", "first@y.com"}, c.Recipients(compose.To))
}

func TestSendRecipientOrderWithBackup(t *testing.T) {
	srv, c := scriptedClient(t, "a@x.com", nil)
	c.SetBackupToSelf(true)
	c.AddRecipients(compose.Cc, "cc@y.com")
	c.AddRecipients(compose.Bc, "bc@y.com")
	c.AddRecipients(compose.To, "to@y.com")

	require.True(t, c.Send("Hi", "Hello", ""))
	assert.Equal(t, []string{"bc@y.com", "a@x.com"}, c.Recipients(compose.Bc))
	require.NoError(t, c.Close())

	var rcpts []string
	for _, cmd := range srv.Commands() {
		if strings.HasPrefix(cmd, "RCPT TO:") {
			rcpts = append(rcpts, cmd)
		}
	}
	assert.Equal(t, []string{
		"RCPT TO:<to@y.com>",
		"RCPT TO:<bc@y.com>",
		"RCPT TO:<a@x.com>",
		"RCPT TO:<cc@y.com>",
	}, rcpts)

	// a second send doesn't blind-copy the sender twice
	c2Srv, c2 := scriptedClient(t, "a@x.com", nil)
	c2.SetBackupToSelf(true)
	c2.AddRecipients(compose.To, "to@y.com")
	require.True(t, c2.Send("1", "one", ""))
	require.True(t, c2.Send("2", "two", ""))
	assert.Equal(t, []string{"a@x.com"}, c2.Recipients(compose.Bc))
	require.NoError(t, c2.Close())
	assert.Len(t, c2Srv.Payloads(), 2)
}

func TestSendDataRefused(t *testing.T) {
	srv, c := scriptedClient(t, "a@x.com", map[string]string{
		"DATA": "550 Denied",
	})

	assert.False(t, c.Send("Hi", "Hello", "b@y.com"))
	assert.Equal(t, []string{"Error: DATA (Return: 550)"}, c.Errors())
	require.NoError(t, c.Close())

	// the payload is never sent
	assert.Equal(t, []string{
		"HELO LITES",
		"MAIL FROM:<a@x.com>",
		"RCPT TO:<b@y.com>",
		"DATA",
		"QUIT",
	}, srv.Commands())

	// and later sends do nothing
	assert.False(t, c.Send("Hi again", "Hello", "b@y.com"))
}

func TestSendMailFromRefusedKeepsGoing(t *testing.T) {
	srv, c := scriptedClient(t, "a@x.com", map[string]string{
		"MAIL": "553 Not allowed",
	})

	assert.False(t, c.Send("Hi", "Hello", "b@y.com"))
	assert.Equal(t, []string{"Error: MAIL FROM:<a@x.com> (Return: 553)"}, c.Errors())
	require.NoError(t, c.Close())

	// nothing is rolled back or skipped
	assert.Contains(t, srv.Commands(), "RCPT TO:<b@y.com>")
	assert.Contains(t, srv.Commands(), "DATA")
	assert.Len(t, srv.Payloads(), 1)
}

func TestSendPayloadRejected(t *testing.T) {
	_, c := scriptedClient(t, "a@x.com", map[string]string{
		".": "554 Message rejected",
	})

	assert.False(t, c.Send("Hi", "Hello", "b@y.com"))
	require.Len(t, c.Errors(), 1)
	assert.True(t, strings.HasSuffix(c.Errors()[0], "(Return: 554)"))
	assert.True(t, transport.IsKind(c.Err(), transport.ProtocolError))
}

func TestSendWithAttachments(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "report.csv")
	require.NoError(t, os.WriteFile(p, []byte("a,b\n1,2\n"), 0o600))

	srv, c := scriptedClient(t, "a@x.com", nil)
	require.NoError(t, c.AddAttachments(false, p, "Renamed.csv:"+p))
	require.True(t, c.Send("Report", "See attached", "b@y.com"), "errors: %v", c.Errors())
	require.NoError(t, c.Close())

	require.Len(t, srv.Payloads(), 1)
	_, parts, err := smtptest.DecodeMessage(srv.Payloads()[0])
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.Equal(t, "See attached", string(parts[0].Content))
	assert.Equal(t, "report.csv", parts[1].Filename)
	assert.Equal(t, "Renamed.csv", parts[2].Filename)
	assert.Equal(t, "a,b\n1,2\n", string(parts[2].Content))
}

func TestAddAttachmentsMissing(t *testing.T) {
	_, c := scriptedClient(t, "a@x.com", nil)
	missing := filepath.Join(t.TempDir(), "nope.txt")

	// logged, not fatal
	require.NoError(t, c.AddAttachments(false, missing))
	assert.Empty(t, c.Attachments())
	assert.Empty(t, c.Errors())
	assert.Equal(t, []string{"Error: attachment '" + missing + "' doesn't exist!"}, c.Log())

	// fatal when asked
	err := c.AddAttachments(true, missing)
	require.Error(t, err)
	assert.True(t, transport.IsKind(err, transport.AttachmentError))
	assert.Empty(t, c.Errors(), "a stopped attachment isn't added to the error list")
}

func TestAddAttachmentsStopsFromConfig(t *testing.T) {
	srv, err := smtptest.NewScriptedServer()
	require.NoError(t, err)
	go srv.Start()
	defer srv.Close()

	c := New(UserConfig{
		Server:                  srv.Address(),
		From:                    "a@x.com",
		StopOnMissingAttachment: true,
	})
	defer c.Close()

	err = c.AddAttachments(false, filepath.Join(t.TempDir(), "nope.txt"))
	assert.True(t, transport.IsKind(err, transport.AttachmentError))
}

func TestSendAttachmentRemovedBeforeSend(t *testing.T) {
	p := filepath.Join(t.TempDir(), "gone.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	srv, c := scriptedClient(t, "a@x.com", nil)
	require.NoError(t, c.AddAttachments(true, p))
	require.NoError(t, os.Remove(p))

	assert.False(t, c.Send("Hi", "Hello", "b@y.com"))
	assert.True(t, transport.IsKind(c.Err(), transport.AttachmentError))
	require.NoError(t, c.Close())
	assert.NotContains(t, srv.Commands(), "DATA")
}

func TestContentTypes(t *testing.T) {
	testCases := []struct {
		description string
		setting     string
		text        string
		want        string
	}{
		{"html by default", "", "plain words", "text/html"},
		{"text", "text", "<p>markup</p>", "text/plain"},
		{"auto with markup", "auto", "<p>markup</p>", "text/html"},
		{"auto without markup", "auto", "plain words", "text/plain"},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			srv, c := scriptedClient(t, "a@x.com", nil)
			if tc.setting != "" {
				c.ChangeContentType(tc.setting)
			}
			require.True(t, c.Send("Hi", tc.text, "b@y.com"))
			require.NoError(t, c.Close())

			header, _ := payloadParts(t, srv.Payloads()[0])
			assert.Contains(t, header, "Content-Type: "+tc.want+"; charset=\"UTF-8\"")
		})
	}
}

func TestResetMail(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	_, c := scriptedClient(t, "a@x.com", nil)
	c.ChangeContentType("text")
	assert.True(t, c.ToggleBackupToSelf())
	c.AddRecipients(compose.To, "b@y.com")
	c.AddRecipients(compose.Cc, "c@y.com")
	require.NoError(t, c.AddAttachments(true, p))

	c.ResetMail()

	assert.Empty(t, c.Recipients(compose.To))
	assert.Empty(t, c.Recipients(compose.Cc))
	assert.Empty(t, c.Attachments())
	assert.Equal(t, compose.TextHTML, c.contentType)
	assert.False(t, c.backup)
}

func TestRemoveAndClearRecipients(t *testing.T) {
	_, c := scriptedClient(t, "a@x.com", nil)
	c.AddRecipients(compose.To, "x@y.com", "keep@y.com")
	c.AddRecipients(compose.Cc, "x@y.com")

	c.RemoveRecipients([]string{"x@y.com"}, compose.Cc)
	assert.Equal(t, []string{"x@y.com", "keep@y.com"}, c.Recipients(compose.To))
	assert.Empty(t, c.Recipients(compose.Cc))

	c.RemoveRecipients([]string{"x@y.com"})
	assert.Equal(t, []string{"keep@y.com"}, c.Recipients(compose.To))

	c.ClearRecipients(compose.To)
	assert.Empty(t, c.Recipients(compose.To))
}

func TestDebugLog(t *testing.T) {
	srv, err := smtptest.NewScriptedServer()
	require.NoError(t, err)
	go srv.Start()
	defer srv.Close()

	c := New(UserConfig{
		Server:      srv.Address(),
		From:        "a@x.com",
		Debug:       true,
		ReadTimeout: 5 * time.Second,
	})
	require.True(t, c.Send("Hi", "Hello", "b@y.com"))
	require.NoError(t, c.Close())

	l := c.Log()
	require.NotEmpty(t, l)
	assert.True(t, strings.HasPrefix(l[0], "telnet 127.0.0.1 "))
	assert.Equal(t, "SEND: QUIT ()\r\nRESP: 221 Bye", l[len(l)-1])
}

func TestCloseIsIdempotent(t *testing.T) {
	srv, c := scriptedClient(t, "a@x.com", nil)
	c.Authenticate("a@x.com", "")
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Equal(t, []string{"HELO LITES", "QUIT"}, srv.Commands())
}
