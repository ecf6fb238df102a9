package prometheus_test

import (
	"context"
	"errors"
	"image"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toastnco/prometheus"
	"github.com/toastnco/prometheus/guild"
	"github.com/toastnco/prometheus/id"
	"github.com/toastnco/prometheus/nlu"
	"github.com/toastnco/prometheus/safety"
	"github.com/toastnco/prometheus/store/memory"
	"github.com/toastnco/prometheus/welcome"
)

const (
	guildID   = 100
	channelID = 200
	generalID = 201
	authorID  = 300
)

type reply struct {
	content string
	mention bool
}

type upload struct {
	channelID uint64
	name      string
	size      int
}

type fakePlatform struct {
	mu       sync.Mutex
	replies  []reply
	uploads  []upload
	managers map[uint64]bool
	permErr  error
}

func newFakePlatform(managers ...uint64) *fakePlatform {
	p := &fakePlatform{managers: map[uint64]bool{}}
	for _, m := range managers {
		p.managers[m] = true
	}
	return p
}

func (p *fakePlatform) Reply(_ context.Context, _ *prometheus.Message, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, reply{content: content})
	return nil
}

func (p *fakePlatform) ReplyMention(_ context.Context, _ *prometheus.Message, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replies = append(p.replies, reply{content: content, mention: true})
	return nil
}

func (p *fakePlatform) CanManageGuild(_ context.Context, _, _, userID uint64) (bool, error) {
	if p.permErr != nil {
		return false, p.permErr
	}
	return p.managers[userID], nil
}

func (p *fakePlatform) SendFile(_ context.Context, channelID uint64, name string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uploads = append(p.uploads, upload{channelID: channelID, name: name, size: len(data)})
	return nil
}

type fakeClassifier struct {
	intents map[string]string
	calls   []string
	err     error
}

func (c *fakeClassifier) Classify(_ context.Context, text string) (*nlu.Message, error) {
	c.calls = append(c.calls, text)
	if c.err != nil {
		return nil, c.err
	}
	msg := &nlu.Message{Text: text}
	if name, ok := c.intents[text]; ok {
		msg.Intents = []nlu.Intent{{ID: "1", Name: name, Confidence: 0.98}}
	}
	return msg, nil
}

type fakeLinks struct {
	bad   map[string]bool
	calls int
	err   error
}

func (l *fakeLinks) Check(_ context.Context, urls []string) (*safety.Response, error) {
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	resp := &safety.Response{}
	for _, u := range urls {
		if l.bad[u] {
			resp.Matches = append(resp.Matches, safety.Match{
				ThreatType:   "SOCIAL_ENGINEERING",
				PlatformType: "ANY_PLATFORM",
				Threat:       safety.ThreatEntry{URL: u},
			})
		}
	}
	return resp, nil
}

type fakeCompositor struct {
	calls int
}

func (c *fakeCompositor) Welcome(context.Context, string, string, string) (*image.RGBA, error) {
	c.calls++
	return image.NewRGBA(image.Rect(0, 0, 8, 8)), nil
}

type harness struct {
	bot        *prometheus.Bot
	store      *memory.Store
	platform   *fakePlatform
	classifier *fakeClassifier
	links      *fakeLinks
	compositor *fakeCompositor
	cacheDir   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:    memory.New(),
		platform: newFakePlatform(authorID),
		classifier: &fakeClassifier{intents: map[string]string{
			"turn on welcome in #general": "welcome_enable",
			"turn on welcome":             "welcome_enable",
			"turn off welcome":            "welcome_disable",
			"turn on time travel":         "timetravel_enable",
			"what is the weather":         "weather_get",
		}},
		links:      &fakeLinks{bad: map[string]bool{"http://phish.example/login": true}},
		compositor: &fakeCompositor{},
		cacheDir:   t.TempDir(),
	}
	h.bot = prometheus.New(h.store,
		prometheus.WithPlatform(h.platform),
		prometheus.WithClassifier(h.classifier),
		prometheus.WithLinkChecker(h.links),
		prometheus.WithCompositor(h.compositor),
		prometheus.WithCacheDir(h.cacheDir),
	)
	require.NoError(t, h.bot.Start(context.Background()))
	return h
}

func message(content string) *prometheus.Message {
	return &prometheus.Message{
		ID:        1,
		GuildID:   guildID,
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content,
	}
}

func TestStartWithoutPlatform(t *testing.T) {
	bot := prometheus.New(memory.New())
	assert.ErrorIs(t, bot.Start(context.Background()), prometheus.ErrNoPlatform)
}

func TestEnableWelcomeInMentionedChannel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	m := message(".turn on welcome in #general")
	m.MentionChannels = []uint64{generalID}

	out, err := h.bot.HandleMessage(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionFeatureEnabled, out.Action)
	assert.Equal(t, "welcome_enable", out.Intent)
	assert.Equal(t, prometheus.FeatureWelcome, out.Feature)
	assert.False(t, out.EventID.IsNil())

	ws, err := h.store.GetWelcome(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, uint64(guildID), ws.GuildID)
	assert.Equal(t, uint64(generalID), ws.ChannelID)

	require.Len(t, h.platform.replies, 1)
	assert.Contains(t, h.platform.replies[0].content, "the welcome messages")
	assert.False(t, h.platform.replies[0].mention)
	assert.Equal(t, []string{"turn on welcome in #general"}, h.classifier.calls)
}

func TestEnableDefaultsToCurrentChannel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.bot.HandleMessage(ctx, message(".turn on welcome"))
	require.NoError(t, err)

	ws, err := h.store.GetWelcome(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, uint64(channelID), ws.ChannelID)
}

func TestReenableMovesChannel(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.bot.HandleMessage(ctx, message(".turn on welcome"))
	require.NoError(t, err)

	m := message(".turn on welcome in #general")
	m.MentionChannels = []uint64{generalID}
	out, err := h.bot.HandleMessage(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionFeatureEnabled, out.Action)

	ws, err := h.store.GetWelcome(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, uint64(generalID), ws.ChannelID)
}

func TestDisable(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	require.NoError(t, h.store.CreateWelcome(ctx, welcome.New(guildID, channelID)))

	out, err := h.bot.HandleMessage(ctx, message(".turn off welcome"))
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionFeatureDisabled, out.Action)
	assert.Equal(t, prometheus.DisableReply(prometheus.FeatureWelcome), out.Reply)

	_, err = h.store.GetWelcome(ctx, guildID)
	assert.ErrorIs(t, err, prometheus.ErrWelcomeNotFound)
}

func TestDisableNeverEnabledIsConfirmed(t *testing.T) {
	h := newHarness(t)

	out, err := h.bot.HandleMessage(context.Background(), message(".turn off welcome"))
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionFeatureDisabled, out.Action)

	require.Len(t, h.platform.replies, 1)
	got := h.platform.replies[0].content
	assert.Contains(t, got, "the welcome messages by name")
	assert.Contains(t, got, "Bearer of the Prometheus Banner")
}

func TestPermissionDenied(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	m := message(".turn on welcome")
	m.AuthorID = authorID + 1

	out, err := h.bot.HandleMessage(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionPermissionDenied, out.Action)

	require.Len(t, h.platform.replies, 1)
	assert.True(t, h.platform.replies[0].mention)
	assert.Equal(t, prometheus.PermissionDeniedReply, h.platform.replies[0].content)

	_, err = h.store.GetWelcome(ctx, guildID)
	assert.ErrorIs(t, err, prometheus.ErrWelcomeNotFound)
}

func TestPermissionCheckFailureAborts(t *testing.T) {
	h := newHarness(t)
	h.platform.permErr = errors.New("gateway down")

	_, err := h.bot.HandleMessage(context.Background(), message(".turn on welcome"))
	require.Error(t, err)
	assert.Empty(t, h.platform.replies)
}

func TestUnknownFeature(t *testing.T) {
	h := newHarness(t)

	out, err := h.bot.HandleMessage(context.Background(), message(".turn on time travel"))
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionUnknownFeature, out.Action)
	assert.Equal(t, "timetravel", out.Feature)
	require.Len(t, h.platform.replies, 1)
	assert.Equal(t, prometheus.UnknownFeatureReply, h.platform.replies[0].content)
}

func TestIgnoredMessages(t *testing.T) {
	tests := []struct {
		name   string
		msg    func() *prometheus.Message
		action prometheus.Action
	}{
		{"NoPrefix", func() *prometheus.Message { return message("turn on welcome") }, prometheus.ActionIgnored},
		{"OnlyPrefix", func() *prometheus.Message { return message(".   ") }, prometheus.ActionIgnored},
		{"Bot", func() *prometheus.Message {
			m := message(".turn on welcome")
			m.AuthorBot = true
			return m
		}, prometheus.ActionIgnored},
		{"NoIntent", func() *prometheus.Message { return message(".sing a song") }, prometheus.ActionNoIntent},
		{"OtherSuffix", func() *prometheus.Message { return message(".what is the weather") }, prometheus.ActionUnhandledIntent},
		{"DirectMessage", func() *prometheus.Message {
			m := message(".turn on welcome")
			m.GuildID = 0
			return m
		}, prometheus.ActionUnhandledIntent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			out, err := h.bot.HandleMessage(context.Background(), tt.msg())
			require.NoError(t, err)
			assert.Equal(t, tt.action, out.Action)
			assert.Empty(t, h.platform.replies)
		})
	}
}

func TestGuildRegisteredOnFirstMessage(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	_, err := h.store.GetGuild(ctx, guildID)
	require.ErrorIs(t, err, prometheus.ErrGuildNotFound)

	_, err = h.bot.HandleMessage(ctx, message("hello there"))
	require.NoError(t, err)

	g, err := h.store.GetGuild(ctx, guildID)
	require.NoError(t, err)
	assert.Equal(t, uint64(guildID), g.ID)
	assert.False(t, g.BetaProgram)

	// A second message finds the record.
	_, err = h.bot.HandleMessage(ctx, message("hello again"))
	require.NoError(t, err)
}

func TestMaliciousLinkReported(t *testing.T) {
	h := newHarness(t)

	out, err := h.bot.HandleMessage(context.Background(),
		message("free nitro at http://phish.example/login and https://ok.example"))
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionMaliciousLink, out.Action)

	require.Len(t, h.platform.replies, 1)
	got := h.platform.replies[0].content
	assert.Contains(t, got, "- http:>>phish.example>login")
	assert.Contains(t, got, "The platforms of any platform")
	assert.Contains(t, got, "warnings of social engineering")
	assert.NotContains(t, got, "ok.example")
}

func TestMaliciousCommandIsNotDispatched(t *testing.T) {
	h := newHarness(t)
	h.classifier.intents["turn on welcome http://phish.example/login"] = "welcome_enable"

	out, err := h.bot.HandleMessage(context.Background(), message(".turn on welcome http://phish.example/login"))
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionMaliciousLink, out.Action)
	assert.Empty(t, h.classifier.calls)
}

func TestLinksCheckedWithoutPrefix(t *testing.T) {
	h := newHarness(t)

	_, err := h.bot.HandleMessage(context.Background(), message("see https://ok.example"))
	require.NoError(t, err)
	assert.Equal(t, 1, h.links.calls)

	_, err = h.bot.HandleMessage(context.Background(), message("no links here"))
	require.NoError(t, err)
	assert.Equal(t, 1, h.links.calls)
}

func TestUpstreamFailures(t *testing.T) {
	t.Run("LinkCheck", func(t *testing.T) {
		h := newHarness(t)
		h.links.err = errors.New("quota")

		_, err := h.bot.HandleMessage(context.Background(), message("https://ok.example"))
		assert.ErrorIs(t, err, prometheus.ErrLinkCheck)
		assert.True(t, prometheus.IsUpstream(err))
		assert.Empty(t, h.platform.replies)
	})

	t.Run("Classifier", func(t *testing.T) {
		h := newHarness(t)
		h.classifier.err = errors.New("timeout")

		_, err := h.bot.HandleMessage(context.Background(), message(".turn on welcome"))
		assert.ErrorIs(t, err, prometheus.ErrClassifier)
		assert.Empty(t, h.platform.replies)
	})
}

func TestMemberJoinWithoutWelcomeIsSkipped(t *testing.T) {
	h := newHarness(t)

	out, err := h.bot.HandleMemberJoin(context.Background(), &prometheus.MemberJoin{
		GuildID:  guildID,
		UserID:   authorID,
		Username: "Amber",
	})
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionWelcomeSkipped, out.Action)
	assert.Empty(t, h.platform.uploads)
	assert.Zero(t, h.compositor.calls)
}

func TestMemberJoinUploadsCard(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.NoError(t, h.store.CreateWelcome(ctx, welcome.New(guildID, generalID)))

	out, err := h.bot.HandleMemberJoin(ctx, &prometheus.MemberJoin{
		GuildID:   guildID,
		GuildName: "the source code",
		UserID:    authorID,
		Username:  "Amber Blackfire",
		AvatarURL: "https://cdn.example/avatar.png",
	})
	require.NoError(t, err)
	assert.Equal(t, prometheus.ActionWelcomeSent, out.Action)

	require.Len(t, h.platform.uploads, 1)
	assert.Equal(t, uint64(generalID), h.platform.uploads[0].channelID)
	assert.Equal(t, prometheus.WelcomeFileName, h.platform.uploads[0].name)
	assert.Positive(t, h.platform.uploads[0].size)

	entries, err := os.ReadDir(h.cacheDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "staging file must be removed after upload")
}

func TestEnableAndDisableReplies(t *testing.T) {
	enable := prometheus.EnableReply(prometheus.FeatureWelcome)
	disable := prometheus.DisableReply(prometheus.FeatureWelcome)

	assert.Contains(t, enable, "namely the welcome messages, hath been ushered")
	assert.Contains(t, disable, "the welcome messages by name")
	assert.NotEqual(t, enable, disable)
	assert.NotContains(t, enable, "%")
	assert.NotContains(t, disable, "%")
}

type recordingPlugin struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPlugin) Name() string { return "recording" }

func (p *recordingPlugin) add(e string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPlugin) OnFeatureEnabled(context.Context, id.ID, uint64, uint64, string) error {
	p.add("enabled")
	return nil
}

func (p *recordingPlugin) OnGuildRegistered(context.Context, *guild.Settings) error {
	p.add("registered")
	return nil
}

func (p *recordingPlugin) OnHandlerFailed(_ context.Context, _ id.ID, kind string, _ error) error {
	p.add("failed:" + kind)
	return nil
}

func TestPluginsSeeEvents(t *testing.T) {
	ctx := context.Background()
	rec := &recordingPlugin{}
	classifier := &fakeClassifier{intents: map[string]string{"turn on welcome": "welcome_enable"}}

	bot := prometheus.New(memory.New(),
		prometheus.WithPlatform(newFakePlatform(authorID)),
		prometheus.WithClassifier(classifier),
		prometheus.WithCacheDir(t.TempDir()),
		prometheus.WithPlugin(rec),
	)
	require.NoError(t, bot.Start(ctx))
	assert.Equal(t, 1, bot.Plugins().Count())

	_, err := bot.HandleMessage(ctx, message(".turn on welcome"))
	require.NoError(t, err)

	classifier.err = errors.New("down")
	_, err = bot.HandleMessage(ctx, message(".turn on welcome"))
	require.Error(t, err)

	assert.Equal(t, []string{"registered", "enabled", "failed:message"}, rec.events)
	require.NoError(t, bot.Stop(ctx))
}
