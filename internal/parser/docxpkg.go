package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/fumiama/go-docx"
)

// docxPackage covers the package parts go-docx does not model: numbering
// definitions and core document properties.
type docxPackage struct {
	doc   *docx.Docx
	files map[string]*zip.File
	nums  map[string]string         // numId -> abstractNumId
	fmts  map[string]map[int]string // abstractNumId -> ilvl -> numFmt
}

func openPackage(data []byte) (*docxPackage, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	pkg := &docxPackage{
		files: make(map[string]*zip.File, len(zr.File)),
		nums:  map[string]string{},
		fmts:  map[string]map[int]string{},
	}
	for _, f := range zr.File {
		pkg.files[f.Name] = f
	}

	pkg.loadNumbering()
	return pkg, nil
}

func (pkg *docxPackage) read(name string) ([]byte, error) {
	f, ok := pkg.files[name]
	if !ok {
		return nil, fmt.Errorf("%s not found in archive", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (pkg *docxPackage) loadNumbering() {
	data, err := pkg.read("word/numbering.xml")
	if err != nil {
		return
	}
	var doc struct {
		Abstract []struct {
			ID     string `xml:"abstractNumId,attr"`
			Levels []struct {
				Ilvl   string `xml:"ilvl,attr"`
				NumFmt struct {
					Val string `xml:"val,attr"`
				} `xml:"numFmt"`
			} `xml:"lvl"`
		} `xml:"abstractNum"`
		Nums []struct {
			ID       string `xml:"numId,attr"`
			Abstract struct {
				Val string `xml:"val,attr"`
			} `xml:"abstractNumId"`
		} `xml:"num"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return
	}
	for _, a := range doc.Abstract {
		levels := map[int]string{}
		for _, l := range a.Levels {
			n, err := strconv.Atoi(l.Ilvl)
			if err != nil {
				continue
			}
			levels[n] = l.NumFmt.Val
		}
		pkg.fmts[a.ID] = levels
	}
	for _, n := range doc.Nums {
		pkg.nums[n.ID] = n.Abstract.Val
	}
}

// numbering converts paragraph numbering properties. numId 0 means numbering
// was explicitly removed.
func (pkg *docxPackage) numbering(np *docx.NumProperties) *Numbering {
	if np == nil || np.NumID == nil || np.NumID.Val == "" || np.NumID.Val == "0" {
		return nil
	}
	level := 0
	if np.Ilvl != nil {
		level, _ = strconv.Atoi(np.Ilvl.Val)
	}
	return &Numbering{
		ListID: np.NumID.Val,
		Level:  level,
		Format: pkg.numFormat(np.NumID.Val, level),
	}
}

// numFormat resolves the numbering format of a list level. Anything unknown
// resolves to "bullet".
func (pkg *docxPackage) numFormat(numID string, ilvl int) string {
	abs, ok := pkg.nums[numID]
	if !ok {
		return "bullet"
	}
	if f := pkg.fmts[abs][ilvl]; f != "" {
		return f
	}
	return "bullet"
}

// image resolves a relationship id to the embedded media.
func (pkg *docxPackage) image(relID string) *ImageRef {
	target, err := pkg.doc.ReferTarget(relID)
	if err != nil {
		return &ImageRef{Name: relID}
	}
	ref := &ImageRef{Name: path.Base(target)}
	if m := pkg.doc.Media(ref.Name); m != nil {
		ref.Data = m.Data
	} else if data, err := pkg.read(path.Clean(path.Join("word", strings.TrimPrefix(target, "/")))); err == nil {
		ref.Data = data
	}
	return ref
}

func (pkg *docxPackage) metadata() Metadata {
	data, err := pkg.read("docProps/core.xml")
	if err != nil {
		return Metadata{}
	}
	var core struct {
		Title       string `xml:"title"`
		Creator     string `xml:"creator"`
		Keywords    string `xml:"keywords"`
		Description string `xml:"description"`
	}
	if err := xml.Unmarshal(data, &core); err != nil {
		return Metadata{}
	}
	return Metadata{
		Title:       strings.TrimSpace(core.Title),
		Description: strings.TrimSpace(core.Description),
		Authors:     SplitList(core.Creator),
		Keywords:    SplitList(core.Keywords),
	}
}
