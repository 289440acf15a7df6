package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/contre95/mailwatch/src/features/config"
	"github.com/gosimple/unidecode"
	"github.com/wneessen/go-mail"
	"golang.org/x/oauth2"
)

const subjectLayout = "2006-01-02 15:04:05"

// ErrNoCredentials is returned when the configured auth mode lacks its secret.
var ErrNoCredentials = errors.New("mail credentials are not configured")

// Mailer sends one message per batch of new files over SMTP.
// It reads the mail section on every dispatch so settings changes apply to the next batch.
type Mailer struct {
	config *config.Manager
	now    func() time.Time

	mu       sync.Mutex
	tokens   oauth2.TokenSource
	tokenKey string
}

// NewMailer creates a mailer bound to the configuration manager.
func NewMailer(cfg *config.Manager) *Mailer {
	return &Mailer{config: cfg, now: time.Now}
}

// Dispatch composes and submits the message. Missing files are left out of the attachments.
func (m *Mailer) Dispatch(ctx context.Context, paths []string, recipient, sender string) error {
	cfg := m.config.Get().Mail

	msg, attached, err := compose(paths, recipient, sender, m.now(), cfg.AsciiFilenames)
	if err != nil {
		return err
	}

	client, err := m.client(ctx, cfg, sender)
	if err != nil {
		return err
	}

	slog.Debug("Submitting mail", "host", cfg.Host, "port", cfg.Port, "recipient", recipient, "attachments", len(attached))
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send mail via %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	slog.Info("Mail sent", "recipient", recipient, "attachments", attached)
	return nil
}

func (m *Mailer) client(ctx context.Context, cfg config.Mail, sender string) (*mail.Client, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.TimeoutSecs > 0 {
		opts = append(opts, mail.WithTimeout(time.Duration(cfg.TimeoutSecs)*time.Second))
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else if cfg.Auth == "none" {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}

	username := cfg.Username
	if username == "" {
		username = sender
	}

	switch cfg.Auth {
	case "password":
		if cfg.Password == "" {
			return nil, fmt.Errorf("%w: set mail.password or MAIL_PASSWORD", ErrNoCredentials)
		}
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(cfg.Password),
		)
	case "oauth2":
		token, err := m.accessToken(ctx, cfg.OAuth2)
		if err != nil {
			return nil, err
		}
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthXOAUTH2),
			mail.WithUsername(username),
			mail.WithPassword(token),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return client, nil
}

// accessToken returns a valid access token, refreshing it when it expired.
// The token source is rebuilt whenever the oauth2 settings change.
func (m *Mailer) accessToken(ctx context.Context, cfg config.OAuth2) (string, error) {
	if cfg.ClientID == "" || cfg.RefreshToken == "" {
		return "", fmt.Errorf("%w: oauth2 needs client_id and refresh_token", ErrNoCredentials)
	}

	m.mu.Lock()
	key := cfg.ClientID + "\x00" + cfg.ClientSecret + "\x00" + cfg.RefreshToken + "\x00" + cfg.TokenURL
	if m.tokens == nil || m.tokenKey != key {
		m.tokens = TokenSource(context.WithoutCancel(ctx), cfg)
		m.tokenKey = key
	}
	tokens := m.tokens
	m.mu.Unlock()

	token, err := tokens.Token()
	if err != nil {
		return "", fmt.Errorf("failed to refresh oauth2 token: %w", err)
	}
	return token.AccessToken, nil
}

// TokenSource exchanges the configured refresh token for access tokens.
func TokenSource(ctx context.Context, cfg config.OAuth2) oauth2.TokenSource {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = config.DefaultTokenURL
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: tokenURL},
		Scopes:       cfg.Scopes,
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
}

// compose builds the message for one batch. It returns the attachment names in order.
func compose(paths []string, recipient, sender string, at time.Time, ascii bool) (*mail.Msg, []string, error) {
	msg := mail.NewMsg()
	if err := msg.From(sender); err != nil {
		return nil, nil, fmt.Errorf("invalid sender %q: %w", sender, err)
	}
	if err := msg.To(recipient); err != nil {
		return nil, nil, fmt.Errorf("invalid recipient %q: %w", recipient, err)
	}
	msg.Subject("New Files Detected at " + at.Format(subjectLayout))

	var attached, skipped []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			slog.Warn("Skipping attachment, not a regular file", "path", path, "error", err)
			skipped = append(skipped, filepath.Base(path))
			continue
		}
		name := filepath.Base(path)
		if ascii {
			name = asciiName(name)
		}
		msg.AttachFile(path, mail.WithFileName(name))
		attached = append(attached, name)
	}

	msg.SetBodyString(mail.TypeTextPlain, body(attached, skipped))
	return msg, attached, nil
}

func body(attached, skipped []string) string {
	var b strings.Builder
	b.WriteString("New files were detected in the watched directory.\n")
	if len(attached) > 0 {
		b.WriteString("\nAttached:\n")
		for _, name := range attached {
			b.WriteString("  - " + name + "\n")
		}
	}
	if len(skipped) > 0 {
		b.WriteString("\nNo longer available:\n")
		for _, name := range skipped {
			b.WriteString("  - " + name + "\n")
		}
	}
	return b.String()
}

// asciiName transliterates a file name for mail clients that mangle non-ASCII names.
func asciiName(name string) string {
	ext := filepath.Ext(name)
	base := strings.TrimSpace(unidecode.Unidecode(strings.TrimSuffix(name, ext)))
	base = strings.Map(func(r rune) rune {
		if r < 0x20 || r == '/' || r == '\\' || r == '"' {
			return '_'
		}
		return r
	}, base)
	if base == "" {
		base = "attachment"
	}
	return base + unidecode.Unidecode(ext)
}
