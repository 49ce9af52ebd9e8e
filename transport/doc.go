package transport

// transport is responsible for the SMTP command/response exchange: it owns
// the socket to the relay, writes one command at a time and reads exactly one
// reply line before the next command goes out. It knows nothing about the
// message being sent. Failures are never returned as control flow; they are
// collected in a Diagnostics value that every operation checks first.
