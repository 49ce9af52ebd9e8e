package compose

// compose is responsible for turning a sender, recipients, attachments and
// a subject/body pair into the header and MIME body text sent after DATA. It
// never touches a socket, and rendering the same inputs twice gives the same
// text.
