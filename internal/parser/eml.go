// Package parser normalizes raw RFC 5322 messages into the engine's
// ParsedEmail structure. It is the upstream boundary of the core: the engine
// itself never touches raw mail.
package parser

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
	"golang.org/x/text/encoding/charmap"

	"github.com/mikey/phishing-detector/internal/core"
)

func init() {
	// Register additional charsets that are commonly used in emails
	charset.RegisterEncoding("windows-1252", charmap.Windows1252)
	charset.RegisterEncoding("iso-8859-1", charmap.ISO8859_1)
	charset.RegisterEncoding("iso-8859-15", charmap.ISO8859_15)
}

var (
	textURL = regexp.MustCompile(`https?://[^\s<>"')\]]+`)
	hrefURL = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)
)

// ParseFile parses an .eml file into a ParsedEmail
func ParseFile(path string) (*core.ParsedEmail, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads a raw message and produces the normalized structure the engine
// consumes. Collections are always non-nil, per the engine's input contract.
func Parse(r io.Reader) (*core.ParsedEmail, error) {
	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, r); err != nil {
		return nil, fmt.Errorf("failed to read email: %w", err)
	}

	mr, err := mail.CreateReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("failed to create mail reader: %w", err)
	}

	parsed := &core.ParsedEmail{
		URLs:        []string{},
		Attachments: []core.Attachment{},
	}

	header := mr.Header
	parsed.Subject, _ = header.Subject()

	if fromAddrs, err := header.AddressList("From"); err == nil && len(fromAddrs) > 0 {
		parsed.SenderAddress = fromAddrs[0].Address
		parsed.SenderName = fromAddrs[0].Name
	} else {
		// Keep the raw header so the sender analyzer can flag the bad grammar
		parsed.SenderAddress = strings.TrimSpace(header.Get("From"))
	}

	if replyAddrs, err := header.AddressList("Reply-To"); err == nil && len(replyAddrs) > 0 {
		parsed.ReplyTo = replyAddrs[0].Address
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read part: %w", err)
		}

		switch h := part.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := h.ContentType()
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read body: %w", err)
			}

			if strings.HasPrefix(contentType, "text/plain") {
				if parsed.BodyText == "" {
					parsed.BodyText = string(body)
				}
			} else if strings.HasPrefix(contentType, "text/html") {
				parsed.BodyHTML = string(body)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			contentType, params, _ := h.ContentType()

			size, err := io.Copy(io.Discard, part.Body)
			if err != nil {
				return nil, fmt.Errorf("failed to read attachment: %w", err)
			}

			parsed.Attachments = append(parsed.Attachments, core.Attachment{
				Filename:    filename,
				ContentType: contentType,
				Size:        size,
				Encrypted:   strings.EqualFold(params["x-encrypted"], "true"),
			})
		}
	}

	parsed.URLs = ExtractURLs(parsed.BodyText, parsed.BodyHTML)
	return parsed, nil
}

// ExtractURLs collects links from the plain body and from href attributes in
// the HTML body, deduplicated in first-seen order
func ExtractURLs(bodyText, bodyHTML string) []string {
	urls := []string{}
	seen := make(map[string]bool)
	add := func(u string) {
		u = strings.TrimRight(strings.TrimSpace(u), ".,;")
		if u == "" || seen[u] {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}

	for _, u := range textURL.FindAllString(bodyText, -1) {
		add(u)
	}
	for _, m := range hrefURL.FindAllStringSubmatch(bodyHTML, -1) {
		if strings.HasPrefix(strings.ToLower(m[1]), "http") {
			add(m[1])
		}
	}
	return urls
}
