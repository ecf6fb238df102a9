// Package art composes welcome cards: a random bundled background, the new
// member's avatar cropped to a circle, and a word-wrapped greeting.
package art

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // avatar decoding
	_ "image/jpeg" // avatar decoding
	_ "image/png"  // bundled backgrounds and avatars
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"path"
	"strings"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
	_ "golang.org/x/image/webp" // avatar decoding
)

// Layout constants, in pixels of the background image.
const (
	AvatarSize   = 512
	AvatarOffset = 64
	TextLeft     = 64
	TextBaseline = 1250
	LineHeight   = 80
	// TextMargin is subtracted from the background width to get the wrap width.
	TextMargin = 192

	// Glyphs are rendered at FontSize and squashed horizontally by XScale.
	FontSize = 72
	XScale   = 0.5

	maxAvatarBytes = 8 << 20
)

//go:embed images/background-*.png
var backgrounds embed.FS

//go:embed images/avatar.png
var defaultAvatar []byte

// Greeting returns the welcome text for a member joining a server.
func Greeting(name, server string) string {
	return fmt.Sprintf("Greetings and salutations, noble Sir %s. With utmost reverence, I, "+
		"as the devoted steward of our realm, extend a gracious welcome to thee in the name "+
		"of our cherished domain, %s.", name, server)
}

// Compositor renders welcome cards. It is safe for concurrent use.
type Compositor struct {
	font        *opentype.Font
	backgrounds []string
	httpClient  *http.Client
	pick        func(n int) int
	logger      *slog.Logger
}

// Option configures a Compositor.
type Option func(*Compositor)

// WithHTTPClient sets the client used to download avatars.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Compositor) { c.httpClient = hc }
}

// WithPicker replaces the uniform random background choice. pick receives
// the number of backgrounds and returns an index.
func WithPicker(pick func(n int) int) Option {
	return func(c *Compositor) { c.pick = pick }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compositor) { c.logger = logger }
}

// New loads the bundled font and backgrounds.
func New(opts ...Option) (*Compositor, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("prometheus/art: parse font: %w", err)
	}
	names, err := backgrounds.ReadDir("images")
	if err != nil {
		return nil, fmt.Errorf("prometheus/art: list backgrounds: %w", err)
	}

	c := &Compositor{
		font:       f,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		pick:       rand.IntN,
		logger:     slog.Default(),
	}
	for _, e := range names {
		c.backgrounds = append(c.backgrounds, path.Join("images", e.Name()))
	}
	if len(c.backgrounds) == 0 {
		return nil, errors.New("prometheus/art: no backgrounds bundled")
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Welcome renders the card for name joining server. Avatar download
// failures fall back to the bundled default avatar.
func (c *Compositor) Welcome(ctx context.Context, name, server, avatarURL string) (*image.RGBA, error) {
	base, err := c.Background()
	if err != nil {
		return nil, err
	}

	avatar := Resize(c.FetchAvatar(ctx, avatarURL), AvatarSize, AvatarSize)
	CropToCircle(avatar)
	draw.Draw(base, avatar.Bounds().Add(image.Pt(AvatarOffset, AvatarOffset)), avatar, image.Point{}, draw.Over)

	face, err := c.newFace()
	if err != nil {
		return nil, err
	}
	defer face.Close()

	maxWidth := float64(base.Bounds().Dx() - TextMargin)
	lines := WrapText(Greeting(name, server), maxWidth, func(s string) float64 {
		return measure(face, s)
	})
	drawLines(base, face, lines)

	return base, nil
}

// Background decodes a randomly chosen bundled background.
func (c *Compositor) Background() (*image.RGBA, error) {
	name := c.backgrounds[c.pick(len(c.backgrounds))]
	raw, err := backgrounds.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("prometheus/art: read %s: %w", name, err)
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("prometheus/art: decode %s: %w", name, err)
	}
	return toRGBA(img), nil
}

// FetchAvatar downloads and decodes the image at url. It never fails: any
// error yields the bundled default avatar.
func (c *Compositor) FetchAvatar(ctx context.Context, url string) image.Image {
	img, err := c.fetch(ctx, url)
	if err != nil {
		c.logger.Warn("avatar download failed, using default", "url", url, "error", err)
		return DefaultAvatar()
	}
	return img
}

func (c *Compositor) fetch(ctx context.Context, url string) (image.Image, error) {
	if url == "" {
		return nil, errors.New("empty url")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	img, _, err := image.Decode(io.LimitReader(resp.Body, maxAvatarBytes))
	return img, err
}

// DefaultAvatar decodes the bundled fallback avatar.
func DefaultAvatar() image.Image {
	img, _, err := image.Decode(bytes.NewReader(defaultAvatar))
	if err != nil {
		// The asset is compiled in; failing to decode it is a build defect.
		panic(fmt.Sprintf("prometheus/art: decode default avatar: %v", err))
	}
	return img
}

// Resize scales src to w×h with a bilinear filter.
func Resize(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst
}

// InCircle reports whether pixel (x, y) of a size×size square lies inside
// the inscribed circle. Integer arithmetic, no anti-aliasing.
func InCircle(x, y, size int) bool {
	r := size / 2
	dx := x - r
	dy := y - r
	return dx*dx+dy*dy <= r*r
}

// CropToCircle makes every pixel outside the inscribed circle of the
// largest top-left square fully transparent.
func CropToCircle(img *image.RGBA) {
	b := img.Bounds()
	size := min(b.Dx(), b.Dy())
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if !InCircle(x, y, size) {
				img.SetRGBA(b.Min.X+x, b.Min.Y+y, color.RGBA{})
			}
		}
	}
}

// WrapText greedily splits text on whitespace into lines no wider than
// maxWidth as reported by width. A word wider than maxWidth on its own
// occupies a line by itself.
func WrapText(text string, maxWidth float64, width func(string) float64) []string {
	var (
		lines   []string
		current string
	)
	for _, word := range strings.Fields(text) {
		if current == "" {
			current = word
			continue
		}
		candidate := current + " " + word
		if width(candidate) <= maxWidth {
			current = candidate
			continue
		}
		lines = append(lines, current)
		current = word
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func (c *Compositor) newFace() (font.Face, error) {
	face, err := opentype.NewFace(c.font, &opentype.FaceOptions{
		Size:    FontSize,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("prometheus/art: font face: %w", err)
	}
	return face, nil
}

// measure returns the drawn width of s after horizontal scaling.
func measure(face font.Face, s string) float64 {
	return fixedToFloat(font.MeasureString(face, s)) * XScale
}

// drawLines draws lines bottom-up: the last line sits on TextBaseline and
// each earlier one LineHeight above it.
func drawLines(dst *image.RGBA, face font.Face, lines []string) {
	m := face.Metrics()
	ascent, descent := m.Ascent.Ceil(), m.Descent.Ceil()

	for i := range lines {
		line := lines[len(lines)-1-i]
		baseline := TextBaseline - LineHeight*i

		w := font.MeasureString(face, line).Ceil()
		if w == 0 {
			continue
		}
		glyphs := image.NewRGBA(image.Rect(0, 0, w, ascent+descent))
		d := font.Drawer{
			Dst:  glyphs,
			Src:  image.White,
			Face: face,
			Dot:  fixed.P(0, ascent),
		}
		d.DrawString(line)

		scaled := image.Rect(TextLeft, baseline-ascent, TextLeft+int(float64(w)*XScale), baseline+descent)
		draw.BiLinear.Scale(dst, scaled, glyphs, glyphs.Bounds(), draw.Over, nil)
	}
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
