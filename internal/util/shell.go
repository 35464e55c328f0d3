package util

import "strings"

// ShellQuote wraps a string in single quotes, escaping any existing single quotes.
// The remote shell treats the result as one literal word.
func ShellQuote(s string) string {
	// ' becomes '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// ShellQuotePreserveTilde quotes a remote path while leaving a leading ~/
// unquoted so the remote shell still expands it to the login user's home.
func ShellQuotePreserveTilde(path string) string {
	if strings.HasPrefix(path, "~/") {
		return "~/" + ShellQuote(path[2:])
	}
	if path == "~" {
		return "~"
	}
	return ShellQuote(path)
}

// ShellCommand builds "name 'arg1' 'arg2'" with every argument quoted.
// Paths starting with ~/ keep their tilde.
func ShellCommand(name string, args ...string) string {
	var b strings.Builder
	b.WriteString(name)
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(ShellQuotePreserveTilde(a))
	}
	return b.String()
}
