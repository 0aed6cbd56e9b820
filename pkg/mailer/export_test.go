package mailer

//nolint: gochecknoglobals
var BuildMsg = buildMsg
