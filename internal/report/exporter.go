package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/disintegration/imaging"
	"github.com/fathima-sithara/konga-enrollment/internal/metrics"
	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"
)

const (
	logoName  = "logo"
	logoWidth = 240
	remoteDir = "reports"
)

var (
	ErrTemplateData = errors.New("data does not match template")

	unsafeID = regexp.MustCompile(`[^A-Za-z0-9_-]`)
)

// Uploader pushes a finished document to remote storage.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

type Options struct {
	OutputDir string
	URLPrefix string
	LogoPath  string
	Uploader  Uploader
}

// Document describes a rendered file.
type Document struct {
	Filename  string `json:"filename"`
	Path      string `json:"-"`
	URL       string `json:"url"`
	RemoteURL string `json:"remote_url,omitempty"`
}

type Exporter struct {
	dir       string
	urlPrefix string
	logo      []byte
	uploader  Uploader
	log       *zap.Logger
}

func NewExporter(opts Options, log *zap.Logger) (*Exporter, error) {
	dir, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output dir: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	prefix := opts.URLPrefix
	if prefix == "" {
		prefix = "/pdfs"
	}
	x := &Exporter{dir: dir, urlPrefix: prefix, uploader: opts.Uploader, log: log}
	if opts.LogoPath != "" {
		logo, err := loadLogo(opts.LogoPath)
		if err != nil {
			log.Warn("logo unavailable, rendering without it", zap.String("path", opts.LogoPath), zap.Error(err))
		} else {
			x.logo = logo
		}
	}
	return x, nil
}

// loadLogo downsizes the logo once so every document embeds the same small PNG.
func loadLogo(p string) ([]byte, error) {
	img, err := imaging.Open(p)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() > logoWidth {
		img = imaging.Resize(img, logoWidth, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Filename returns the output name for a template and record id.
func Filename(t Template, id string) string {
	prefix := string(t)
	switch t {
	case TemplateEnrollee, TemplateReceipt, TemplateReport:
	default:
		prefix = "document"
	}
	id = unsafeID.ReplaceAllString(id, "_")
	if id == "" {
		id = "untitled"
	}
	return prefix + "-" + id + ".pdf"
}

// Render draws data with the named template and writes it to the output
// directory, replacing any previous file of the same name atomically.
func (x *Exporter) Render(ctx context.Context, t Template, id string, data any) (*Document, error) {
	var buf bytes.Buffer
	if err := x.draw(&buf, t, data); err != nil {
		return nil, err
	}

	name := Filename(t, id)
	full := filepath.Join(x.dir, name)
	if err := writeAtomic(x.dir, full, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("write %s: %w", name, err)
	}
	metrics.DocumentsRenderedTotal.WithLabelValues(string(t)).Inc()

	doc := &Document{Filename: name, Path: full, URL: path.Join(x.urlPrefix, name)}
	if x.uploader != nil {
		remote, err := x.uploader.Upload(ctx, remoteDir+"/"+name, "application/pdf", buf.Bytes())
		if err != nil {
			x.log.Warn("document upload failed", zap.String("file", name), zap.Error(err))
		} else {
			doc.RemoteURL = remote
		}
	}
	return doc, nil
}

func (x *Exporter) draw(w *bytes.Buffer, t Template, data any) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 22)
	pdf.AliasNbPages("")
	pdf.SetTitle(brandTitle, true)
	pdf.SetCreator("konga-enrollment", true)

	p := page{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	footer := footerText(t)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-18)
		pdf.SetFont("Helvetica", "I", 8)
		p.color(gray)
		pdf.CellFormat(0, 5, p.tr(footer), "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	hasLogo := false
	if len(x.logo) > 0 {
		pdf.RegisterImageOptionsReader(logoName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(x.logo))
		hasLogo = pdf.Ok()
	}
	pdf.AddPage()

	switch t {
	case TemplateEnrollee:
		d, ok := asValue[EnrolleeSheet](data)
		if !ok {
			return fmt.Errorf("%s: %w", t, ErrTemplateData)
		}
		drawEnrollee(p, d, hasLogo)
	case TemplateReceipt:
		d, ok := asValue[Receipt](data)
		if !ok {
			return fmt.Errorf("%s: %w", t, ErrTemplateData)
		}
		drawReceipt(p, d)
	case TemplateReport:
		d, ok := asValue[Summary](data)
		if !ok {
			return fmt.Errorf("%s: %w", t, ErrTemplateData)
		}
		drawReport(p, d)
	default:
		drawDefault(p, data)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render %s: %w", t, err)
	}
	return nil
}

func asValue[T any](data any) (T, bool) {
	switch d := data.(type) {
	case T:
		return d, true
	case *T:
		if d != nil {
			return *d, true
		}
	}
	var zero T
	return zero, false
}

func writeAtomic(dir, full string, data []byte) error {
	tmp, err := os.CreateTemp(dir, ".render-*.pdf")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), full)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
