package dispatch

// dispatch runs one send from start to finish: it opens the journal, drives
// an email.Client through the recipients, attachments and message given on
// the command line, and records the outcome. It's what the CLI calls once
// flags and config have been parsed.
