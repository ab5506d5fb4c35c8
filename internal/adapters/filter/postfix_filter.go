package filter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mikey/phishing-detector/internal/core"
	"github.com/mikey/phishing-detector/internal/parser"
)

// PostfixFilter implements a Postfix content filter that stamps each message
// with phishing verdict headers before handing it back to Postfix
type PostfixFilter struct {
	service        *core.AnalysisService
	logger         *zap.Logger
	listenAddr     string
	server         *smtp.Server
	blockCritical  bool
	scoreHeader    string
	levelHeader    string
	reasonHeader   string
	postfixAddr    string
	postfixPort    int
	postfixEnabled bool
	subjectPrefix  string
	modifySubject  bool
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	service *core.AnalysisService,
	logger *zap.Logger,
	listenAddr string,
	blockCritical bool,
	scoreHeader string,
	levelHeader string,
	reasonHeader string,
	postfixAddr string,
	postfixPort int,
	postfixEnabled bool,
	subjectPrefix string,
	modifySubject bool,
) *PostfixFilter {
	// If subject prefix is not set but modify subject is enabled, use default prefix
	if subjectPrefix == "" && modifySubject {
		subjectPrefix = "[**PHISHING**] "
	}

	return &PostfixFilter{
		service:        service,
		logger:         logger,
		listenAddr:     listenAddr,
		blockCritical:  blockCritical,
		scoreHeader:    scoreHeader,
		levelHeader:    levelHeader,
		reasonHeader:   reasonHeader,
		postfixAddr:    postfixAddr,
		postfixPort:    postfixPort,
		postfixEnabled: postfixEnabled,
		subjectPrefix:  subjectPrefix,
		modifySubject:  modifySubject,
	}
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.listenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024 // 30MB
	f.server.MaxRecipients = 50
	f.server.AllowInsecureAuth = true

	f.logger.Info("Postfix filter starting", zap.String("address", f.listenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil {
			if err != smtp.ErrServerClosed {
				f.logger.Error("SMTP server error", zap.Error(err))
			}
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail analyzes an email and returns the threat report.
// This is mainly used for testing or direct API calls
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *core.ParsedEmail) (*core.Report, error) {
	return f.service.Analyze(ctx, email)
}

// sendToPostfix sends the processed email back to Postfix on the configured port using go-smtp
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := fmt.Sprintf("%s:%d", f.postfixAddr, f.postfixPort)

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			// Continue with other recipients even if one fails
		} else {
			recipientOK = true
		}
	}

	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	_, err = wc.Write(emailData)
	if err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
		// Not returning an error here as the email has already been sent
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		filter:     b.filter,
		recipients: make([]string, 0),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = make([]string, 0)
}

// AuthPlain handles PLAIN authentication (not needed for our filter)
func (s *smtpSession) AuthPlain(_ []byte) error {
	return smtp.ErrAuthUnsupported
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data handles the email data
func (s *smtpSession) Data(r io.Reader) error {
	processingID := uuid.New().String()

	// Read the complete raw message data
	rawData, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data",
			zap.String("processing_id", processingID),
			zap.Error(err))
		return err
	}

	// Keep the raw headers for later reconstruction
	msg, err := mail.ReadMessage(bytes.NewReader(rawData))
	if err != nil {
		s.filter.logger.Error("Failed to parse email message",
			zap.String("processing_id", processingID),
			zap.Error(err))
		return err
	}

	// Normalize the message for analysis
	email, err := parser.Parse(bytes.NewReader(rawData))
	if err != nil {
		s.filter.logger.Error("Failed to normalize email",
			zap.String("processing_id", processingID),
			zap.Error(err))
		return err
	}
	if email.SenderAddress == "" {
		email.SenderAddress = s.sender
	}

	senderDomain := "unknown"
	if parts := strings.Split(email.SenderAddress, "@"); len(parts) == 2 {
		senderDomain = parts[1]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	report, analysisErr := s.filter.service.Analyze(ctx, email)
	if analysisErr != nil {
		s.filter.logger.Error("Failed to analyze email",
			zap.String("processing_id", processingID),
			zap.Error(analysisErr),
			zap.String("sender", email.SenderAddress),
			zap.String("sender_domain", senderDomain))

		// Fail open: deliver the mail unscored rather than losing it
		report = &core.Report{
			TotalScore:   0,
			ThreatLevel:  core.ThreatSafe,
			Completeness: core.CompletenessUnavailable,
		}
	}

	if report.ThreatLevel == core.ThreatCritical && s.filter.blockCritical && analysisErr == nil {
		s.filter.logger.Info("Rejecting phishing email",
			zap.String("processing_id", processingID),
			zap.String("from", email.SenderAddress),
			zap.String("sender_domain", senderDomain),
			zap.Float64("score", report.TotalScore),
			zap.String("level", string(report.ThreatLevel)))
		return fmt.Errorf("550 Rejected as phishing (score: %.2f)", report.TotalScore)
	}

	suspicious := report.ThreatLevel == core.ThreatHigh || report.ThreatLevel == core.ThreatCritical

	// Prepend verdict headers to the original message
	var modifiedEmail bytes.Buffer
	fmt.Fprintf(&modifiedEmail, "%s: %.2f\r\n", s.filter.scoreHeader, report.TotalScore)
	fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", s.filter.levelHeader, report.ThreatLevel)
	fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", s.filter.reasonHeader, topReason(report))

	if analysisErr != nil {
		fmt.Fprintf(&modifiedEmail, "X-Phishing-Analysis-Error: %s\r\n", analysisErr.Error())
	}

	if suspicious && s.filter.modifySubject && s.filter.subjectPrefix != "" {
		originalSubject := msg.Header.Get("Subject")
		decodedSubject, err := decodeEncodedHeader(originalSubject)
		if err != nil {
			decodedSubject = originalSubject
		}

		if !strings.HasPrefix(decodedSubject, s.filter.subjectPrefix) {
			fmt.Fprintf(&modifiedEmail, "Subject: %s\r\n", s.filter.subjectPrefix+decodedSubject)
			for key, values := range msg.Header {
				if !strings.EqualFold(key, "Subject") {
					for _, value := range values {
						fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", key, value)
					}
				}
			}
		} else {
			for key, values := range msg.Header {
				for _, value := range values {
					fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", key, value)
				}
			}
		}
	} else {
		for key, values := range msg.Header {
			for _, value := range values {
				fmt.Fprintf(&modifiedEmail, "%s: %s\r\n", key, value)
			}
		}
	}

	fmt.Fprintf(&modifiedEmail, "\r\n")

	// Write the original body verbatim, preserving all MIME parts and attachments
	bodyStartIndex := bytes.Index(rawData, []byte("\r\n\r\n"))
	if bodyStartIndex == -1 {
		bodyStartIndex = bytes.Index(rawData, []byte("\n\n"))
		if bodyStartIndex == -1 {
			bodyBytes, err := io.ReadAll(msg.Body)
			if err != nil {
				s.filter.logger.Error("Failed to read message body",
					zap.String("processing_id", processingID),
					zap.Error(err))
				return err
			}
			modifiedEmail.Write(bodyBytes)
		} else {
			modifiedEmail.Write(rawData[bodyStartIndex+2:])
		}
	} else {
		modifiedEmail.Write(rawData[bodyStartIndex+4:])
	}

	if s.filter.postfixEnabled {
		if err := s.filter.sendToPostfix(s.sender, s.recipients, modifiedEmail.Bytes()); err != nil {
			s.filter.logger.Error("Failed to send email back to Postfix",
				zap.String("processing_id", processingID),
				zap.Error(err),
				zap.String("sender", email.SenderAddress))
			return err
		}
	} else {
		s.filter.logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
	}

	s.filter.logger.Info("Processed email",
		zap.String("processing_id", processingID),
		zap.String("from", email.SenderAddress),
		zap.String("sender_domain", senderDomain),
		zap.Float64("score", report.TotalScore),
		zap.String("level", string(report.ThreatLevel)))

	return nil
}

// topReason summarizes the highest-severity finding for the reason header
func topReason(report *core.Report) string {
	var top *core.Finding
	for _, f := range report.Findings() {
		f := f
		if top == nil || f.Severity > top.Severity {
			top = &f
		}
	}
	if top == nil {
		return "no indicators found"
	}
	return fmt.Sprintf("%s: %s", top.Indicator, top.Description)
}

// Logout handles SMTP logout (not needed for our filter)
func (s *smtpSession) Logout() error {
	return nil
}
