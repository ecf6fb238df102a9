package prometheus

import (
	"context"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/toastnco/prometheus/nlu"
	"github.com/toastnco/prometheus/plugin"
	"github.com/toastnco/prometheus/safety"
	"github.com/toastnco/prometheus/store"
)

// DefaultPrefix marks a message as a command.
const DefaultPrefix = "."

// Classifier maps free text to intents.
type Classifier interface {
	Classify(ctx context.Context, text string) (*nlu.Message, error)
}

// LinkChecker looks URLs up on threat lists.
type LinkChecker interface {
	Check(ctx context.Context, urls []string) (*safety.Response, error)
}

// Compositor renders welcome cards.
type Compositor interface {
	Welcome(ctx context.Context, name, server, avatarURL string) (*image.RGBA, error)
}

// Platform is the chat service the bot answers on.
type Platform interface {
	// Reply answers m, quoting it.
	Reply(ctx context.Context, m *Message, content string) error
	// ReplyMention answers m and pings its author.
	ReplyMention(ctx context.Context, m *Message, content string) error
	// CanManageGuild reports whether userID holds manage-guild in channelID.
	CanManageGuild(ctx context.Context, guildID, channelID, userID uint64) (bool, error)
	// SendFile uploads r as name to channelID.
	SendFile(ctx context.Context, channelID uint64, name string, r io.Reader) error
}

// Bot is the Prometheus engine. It owns the store and every outbound
// dependency and turns platform events into Outcomes.
type Bot struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	classifier Classifier
	links      LinkChecker
	compositor Compositor
	platform   Platform

	// Configuration
	prefix   string
	cacheDir string
}

// New creates a Bot on top of s.
func New(s store.Store, opts ...Option) *Bot {
	b := &Bot{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		prefix:   DefaultPrefix,
		cacheDir: filepath.Join(os.TempDir(), "prometheus"),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Option configures a Bot instance.
type Option func(*Bot)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
		b.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(b *Bot) {
		_ = b.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithPrefix sets the command prefix.
func WithPrefix(prefix string) Option {
	return func(b *Bot) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// WithCacheDir sets where welcome cards are staged before upload.
func WithCacheDir(dir string) Option {
	return func(b *Bot) {
		if dir != "" {
			b.cacheDir = dir
		}
	}
}

// WithClassifier sets the intent classifier.
func WithClassifier(c Classifier) Option {
	return func(b *Bot) { b.classifier = c }
}

// WithLinkChecker sets the link checker. Without one, links are not checked.
func WithLinkChecker(c LinkChecker) Option {
	return func(b *Bot) { b.links = c }
}

// WithCompositor sets the welcome card renderer.
func WithCompositor(c Compositor) Option {
	return func(b *Bot) { b.compositor = c }
}

// WithPlatform sets the chat platform.
func WithPlatform(p Platform) Option {
	return func(b *Bot) { b.platform = p }
}

// Store returns the configuration store.
func (b *Bot) Store() store.Store { return b.store }

// Plugins returns the plugin registry.
func (b *Bot) Plugins() *plugin.Registry { return b.plugins }

// Prefix returns the command prefix.
func (b *Bot) Prefix() string { return b.prefix }

// Start migrates the store and initializes plugins.
func (b *Bot) Start(ctx context.Context) error {
	if b.platform == nil {
		return ErrNoPlatform
	}

	if err := b.store.Migrate(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(b.cacheDir, 0o750); err != nil {
		return err
	}

	b.plugins.EmitInit(ctx, b)

	b.logger.Info("prometheus started",
		"prefix", b.prefix,
		"cache_dir", b.cacheDir,
		"plugins", b.plugins.Count(),
		"link_check", b.links != nil,
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (b *Bot) Stop(ctx context.Context) error {
	b.plugins.EmitShutdown(ctx)
	return b.store.Close()
}
