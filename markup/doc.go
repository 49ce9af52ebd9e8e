package markup

// markup inspects message text to decide whether it should go out as HTML or
// plain text. It's not concerned with rendering or sending anything.
