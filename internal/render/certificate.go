package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"prime-quiz-bot/internal/domain"
)

const (
	certWidth  = 1600
	certHeight = 1000
)

var (
	certBackground = mustHex("#eeeeee")
	certInk        = mustHex("#2c3e50")
	certGold       = mustHex("#f1c40f")
	certName       = mustHex("#e74c3c")
)

// Branding holds the fixed texts printed on every certificate.
// ResultTemplate may contain {percent}.
type Branding struct {
	Title          string
	Subtitle       string
	ResultLead     string
	ResultTemplate string
	Issuer         string
}

// CertificateRenderer draws the participant certificate as a JPEG.
type CertificateRenderer struct {
	branding Branding

	mu       sync.Mutex
	title    font.Face
	subtitle font.Face
	name     font.Face
	text     font.Face
	small    font.Face
}

func NewCertificateRenderer(branding Branding) (*CertificateRenderer, error) {
	regular, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := opentype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}

	r := &CertificateRenderer{branding: branding}
	faces := []struct {
		dst  *font.Face
		font *opentype.Font
		size float64
	}{
		{&r.title, bold, 95},
		{&r.subtitle, regular, 40},
		{&r.name, bold, 85},
		{&r.text, regular, 48},
		{&r.small, regular, 36},
	}
	for _, f := range faces {
		face, err := opentype.NewFace(f.font, &opentype.FaceOptions{Size: f.size, DPI: 72, Hinting: font.HintingFull})
		if err != nil {
			return nil, fmt.Errorf("font face %.0f: %w", f.size, err)
		}
		*f.dst = face
	}
	return r, nil
}

func (r *CertificateRenderer) RenderCertificate(_ context.Context, p domain.Participant, percent int, code string, issued time.Time) (domain.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	img := imaging.New(certWidth, certHeight, certBackground)
	strokeRect(img, image.Rect(10, 10, certWidth-10, certHeight-10), 40, certInk)
	strokeRect(img, image.Rect(80, 80, certWidth-80, certHeight-80), 8, certGold)

	r.center(img, r.branding.Title, 170, r.title, certInk)
	r.center(img, r.branding.Subtitle, 300, r.subtitle, certInk)
	r.center(img, strings.ToUpper(p.FullName()), 430, r.name, certName)
	r.center(img, r.branding.ResultLead, 610, r.text, certInk)
	r.center(img, strings.ReplaceAll(r.branding.ResultTemplate, "{percent}", fmt.Sprintf("%d%%", percent)), 680, r.text, certInk)

	drawText(img, "Date: "+issued.Format("02.01.2006"), 140, 860, r.small, certInk)
	issuerWidth := font.MeasureString(r.small, r.branding.Issuer).Ceil()
	drawText(img, r.branding.Issuer, certWidth-issuerWidth-140, 860, r.small, certInk)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return domain.Document{}, fmt.Errorf("%w: encode certificate: %v", domain.ErrRender, err)
	}
	return domain.Document{
		Filename: fmt.Sprintf("cert_%s_%s.jpg", p.ID, code),
		Data:     buf.Bytes(),
	}, nil
}

func (r *CertificateRenderer) center(img draw.Image, text string, top int, face font.Face, c color.Color) {
	if text == "" {
		return
	}
	w := font.MeasureString(face, text).Ceil()
	drawText(img, text, (certWidth-w)/2, top, face, c)
}

// drawText places text with its top edge at top, like a layout box.
func drawText(img draw.Image, text string, left, top int, face font.Face, c color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(left, top+face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

// strokeRect paints a frame of the given width inside r.
func strokeRect(img draw.Image, r image.Rectangle, width int, c color.Color) {
	src := image.NewUniform(c)
	bands := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width),
		image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+width, r.Max.Y),
		image.Rect(r.Max.X-width, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, b := range bands {
		draw.Draw(img, b, src, image.Point{}, draw.Src)
	}
}
