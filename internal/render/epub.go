package render

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	epub "github.com/go-shiori/go-epub"
	"github.com/google/uuid"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dgallion1/docpress/internal/doctree"
)

// EPUBOptions describes the packaged book.
type EPUBOptions struct {
	Title       string
	Author      string
	Description string
	Lang        string
	// AssetRoot is the directory document image paths are relative to.
	AssetRoot string
}

// EPUB packages docs, in order, as one chapter each. Images referenced by a
// chapter are embedded; images that cannot be read are left out.
func EPUB(docs []*doctree.Document, opts EPUBOptions) ([]byte, error) {
	if len(docs) == 0 {
		return nil, ErrEmptyBook
	}
	book, err := epub.NewEpub(opts.Title)
	if err != nil {
		return nil, fmt.Errorf("create epub: %w", err)
	}
	book.SetIdentifier("urn:uuid:" + bookID(opts.Title, docs).String())
	if opts.Author != "" {
		book.SetAuthor(opts.Author)
	}
	if opts.Description != "" {
		book.SetDescription(opts.Description)
	}
	lang := opts.Lang
	if lang == "" {
		lang = "en"
	}
	book.SetLang(lang)

	p := &epubPackager{book: book, assetRoot: opts.AssetRoot, images: map[string]string{}}
	for _, d := range docs {
		if err := p.chapter(d); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := book.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write epub: %w", err)
	}
	return buf.Bytes(), nil
}

// bookID is stable for the same title and chapter list.
func bookID(title string, docs []*doctree.Document) uuid.UUID {
	slugs := make([]string, len(docs))
	for i, d := range docs {
		slugs[i] = d.Slug
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(title+"\n"+strings.Join(slugs, "\n")))
}

type epubPackager struct {
	book      *epub.Epub
	assetRoot string
	images    map[string]string // source path -> path inside the package
}

func (p *epubPackager) chapter(d *doctree.Document) error {
	frag, err := HTML(d, Options{AssetPrefix: "/", LegacyHTML: true})
	if err != nil {
		return err
	}
	body, err := p.embedImages("<h1>"+html.EscapeString(d.Title)+"</h1>\n"+string(frag))
	if err != nil {
		return fmt.Errorf("epub chapter %s: %w", d.Slug, err)
	}
	if _, err := p.book.AddSection(body, d.Title, d.Slug+".xhtml", ""); err != nil {
		return fmt.Errorf("epub chapter %s: %w", d.Slug, err)
	}
	return nil
}

// embedImages adds every local <img> of fragment to the package and points
// its src at the packaged copy.
func (p *epubPackager) embedImages(fragment string) (string, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return "", fmt.Errorf("parse chapter: %w", err)
	}

	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Img {
			for i, a := range n.Attr {
				if a.Key == "src" {
					n.Attr[i].Val = p.image(a.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}

	var b strings.Builder
	for _, n := range nodes {
		visit(n)
		if err := html.Render(&b, n); err != nil {
			return "", fmt.Errorf("render chapter: %w", err)
		}
	}
	return b.String(), nil
}

// image returns the packaged path for src, adding it on first use. Remote
// and unreadable sources are returned unchanged.
func (p *epubPackager) image(src string) string {
	if !strings.HasPrefix(src, "/") {
		return src
	}
	rel := strings.TrimPrefix(src, "/")
	if internal, ok := p.images[rel]; ok {
		return internal
	}
	file := filepath.Join(p.assetRoot, filepath.FromSlash(rel))
	if _, err := os.Stat(file); err != nil {
		return src
	}
	name := strings.ReplaceAll(path.Dir(rel), "/", "-") + "-" + path.Base(rel)
	internal, err := p.book.AddImage(file, name)
	if err != nil {
		return src
	}
	p.images[rel] = internal
	return internal
}
