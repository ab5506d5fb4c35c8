package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simpleEmail = "From: Alice Smith <alice@example.com>\r\n" +
	"Reply-To: replies@elsewhere.net\r\n" +
	"To: bob@example.com\r\n" +
	"Subject: Meeting notes\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Hi Bob, the notes are at https://docs.example.com/notes. See you!\r\n"

const multipartEmail = "From: \"PayPal Security\" <support@paypa1-security.tk>\r\n" +
	"Subject: Verify your account\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=\"outer\"\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<html><body><a href=\"http://paypa1-security.tk/login\">Log in now</a></body></html>\r\n" +
	"--outer\r\n" +
	"Content-Type: application/octet-stream\r\n" +
	"Content-Disposition: attachment; filename=\"invoice.pdf.exe\"\r\n" +
	"Content-Transfer-Encoding: base64\r\n" +
	"\r\n" +
	"TVqQAAMAAAAEAAAA\r\n" +
	"--outer--\r\n"

func TestParseSimpleEmail(t *testing.T) {
	email, err := Parse(strings.NewReader(simpleEmail))
	require.NoError(t, err)

	assert.Equal(t, "Alice Smith", email.SenderName)
	assert.Equal(t, "alice@example.com", email.SenderAddress)
	assert.Equal(t, "replies@elsewhere.net", email.ReplyTo)
	assert.Equal(t, "Meeting notes", email.Subject)
	assert.Contains(t, email.BodyText, "the notes are at")
	assert.Equal(t, []string{"https://docs.example.com/notes"}, email.URLs)
	assert.NotNil(t, email.Attachments)
	assert.Empty(t, email.Attachments)
}

func TestParseMultipartEmail(t *testing.T) {
	email, err := Parse(strings.NewReader(multipartEmail))
	require.NoError(t, err)

	assert.Equal(t, "PayPal Security", email.SenderName)
	assert.Equal(t, "support@paypa1-security.tk", email.SenderAddress)
	assert.Contains(t, email.BodyHTML, "Log in now")
	assert.Equal(t, []string{"http://paypa1-security.tk/login"}, email.URLs)

	require.Len(t, email.Attachments, 1)
	att := email.Attachments[0]
	assert.Equal(t, "invoice.pdf.exe", att.Filename)
	assert.Equal(t, "application/octet-stream", att.ContentType)
	assert.Greater(t, att.Size, int64(0))
}

func TestParseCollectionsNeverNil(t *testing.T) {
	email, err := Parse(strings.NewReader(simpleEmail))
	require.NoError(t, err)

	require.NoError(t, email.Validate())
}

func TestExtractURLs(t *testing.T) {
	text := "Go to https://example.com/a and http://example.com/b. Also https://example.com/a again."
	html := `<a href="https://example.com/c">c</a> <a href="mailto:x@y.z">mail</a>`

	urls := ExtractURLs(text, html)

	assert.Equal(t, []string{
		"https://example.com/a",
		"http://example.com/b",
		"https://example.com/c",
	}, urls, "deduplicated in first-seen order, trailing punctuation trimmed, non-http schemes skipped")
}

func TestExtractURLsEmpty(t *testing.T) {
	urls := ExtractURLs("no links here", "")

	assert.NotNil(t, urls)
	assert.Empty(t, urls)
}
