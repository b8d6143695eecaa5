// Package report renders the patch and installer tables as HTML pages, both
// for the local web server and for static snapshots on disk.
package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tsanders/patchbrowser/pkg/patch"
	"github.com/tsanders/patchbrowser/pkg/software"
)

// MaxLinks is how many file links a cell shows before collapsing the rest
// behind "More (n)".
const MaxLinks = 2

// Links are the navigation targets of the three pages.
type Links struct {
	Menu     string
	Patches  string
	Software string
}

var (
	// ServerLinks route between pages of the web server.
	ServerLinks = Links{Menu: "/", Patches: "/patches", Software: "/software"}
	// StaticLinks route between files of a snapshot.
	StaticLinks = Links{Menu: "index.html", Patches: "patches.html", Software: "software.html"}
)

// Page is the chrome shared by every view. The renderer fills it in.
type Page struct {
	Title     string
	Nav       string
	Feed      string
	Generated string
	Static    bool
	Links     Links
}

// FeedSummary is one card of the menu page.
type FeedSummary struct {
	Label   string
	Link    string
	Message string
	Rows    int
	Error   bool
}

// MenuView is the landing page.
type MenuView struct {
	Page
	Feeds        []FeedSummary
	DownloadLink string
}

// SheetOption is one entry of the version selector.
type SheetOption struct {
	Key      string
	Label    string
	Selected bool
}

// PatchRowView is a patch row with its links resolved for display.
type PatchRowView struct {
	patch.PatchRow
	SupportURL  string
	DownloadURL string
	Files       []string
	MoreFiles   []string
	FileCount   int
}

// PatchView is the patch table page.
type PatchView struct {
	Page
	ActiveSheet  string
	Sheets       []SheetOption
	VersionBadge string
	Columns      []string
	Components   []string
	Query        patch.Query
	Rows         []PatchRowView
	Total        int
	Truncated    bool
	Status       string
}

// SoftwareView is the installer table page.
type SoftwareView struct {
	Page
	Versions     []string
	Components   []string
	Query        software.Query
	VersionBadge string
	Rows         []software.Row
	Status       string
}

// PatchColumns are the visible patch table headings, in order.
var PatchColumns = []string{
	patch.ColReleased,
	patch.ColComponent,
	patch.ColSecurity,
	patch.ColPatchName,
	patch.ColSupportPage,
	"Download",
}

// NewPatchView filters the requested sheet and resolves each row's links.
// Unknown sheet keys fall back the same way the browser state does.
func NewPatchView(sheets patch.Sheets, key string, q patch.Query) *PatchView {
	if sheets == nil {
		sheets = patch.NewSheets()
	}
	active := sheets.ResolveKey(key)
	res := q.Apply(sheets.Sheet(active))

	v := &PatchView{
		ActiveSheet:  active,
		VersionBadge: versionBadge(active),
		Columns:      PatchColumns,
		Components:   sheets.Components(),
		Query:        q,
		Total:        res.Total,
		Truncated:    res.Truncated(),
	}
	for _, k := range sheets.Keys() {
		v.Sheets = append(v.Sheets, SheetOption{Key: k, Label: patch.SheetLabel(k), Selected: k == active})
	}
	v.Rows = make([]PatchRowView, 0, len(res.Rows))
	for _, row := range res.Rows {
		v.Rows = append(v.Rows, NewPatchRowView(row, active))
	}
	return v
}

// NewPatchRowView resolves the support and download links of one row.
func NewPatchRowView(row patch.PatchRow, activeSheet string) PatchRowView {
	rv := PatchRowView{PatchRow: row}
	rv.SupportURL, _ = patch.SupportURL(row.SupportPage)
	rv.DownloadURL, _ = patch.DirectDownloadURL(row, activeSheet)

	files := patch.SplitURLs(strings.Join(row.PatchFiles, " "))
	rv.FileCount = len(files)
	if len(files) > MaxLinks {
		rv.Files, rv.MoreFiles = files[:MaxLinks], files[MaxLinks:]
	} else {
		rv.Files = files
	}
	return rv
}

func versionBadge(key string) string {
	if v := patch.VersionFromKey(key); v != "" {
		return "Version: " + v
	}
	return "Version: All"
}

// NewSoftwareView filters installer rows and builds the dropdown options.
func NewSoftwareView(rows []software.Row, q software.Query) *SoftwareView {
	badge := "Software: All versions"
	if q.Version != "" {
		badge = "Software version: " + q.Version
	}
	return &SoftwareView{
		Versions:     software.Versions(rows),
		Components:   software.Components(rows),
		Query:        q,
		VersionBadge: badge,
		Rows:         q.Apply(rows),
	}
}

// Renderer executes the page templates.
type Renderer struct {
	menu     *template.Template
	patches  *template.Template
	software *template.Template
	static   bool
	links    Links
	now      func() time.Time
}

// NewRenderer parses the templates. Static renderers link pages as files and
// leave out the filter forms and the live-reload script.
func NewRenderer(static bool) (*Renderer, error) {
	base, err := template.New("layout").Funcs(templateFuncs()).Parse(layoutTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout template: %w", err)
	}

	r := &Renderer{static: static, links: ServerLinks, now: time.Now}
	if static {
		r.links = StaticLinks
	}
	pages := []struct {
		dst  **template.Template
		name string
		text string
	}{
		{&r.menu, "menu", menuTemplate},
		{&r.patches, "patches", patchesTemplate},
		{&r.software, "software", softwareTemplate},
	}
	for _, p := range pages {
		t, err := template.Must(base.Clone()).Parse(p.text)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", p.name, err)
		}
		*p.dst = t
	}
	return r, nil
}

func (r *Renderer) page(title, nav, feed string) Page {
	return Page{
		Title:     title,
		Nav:       nav,
		Feed:      feed,
		Generated: r.now().Format("2006-01-02 15:04:05"),
		Static:    r.static,
		Links:     r.links,
	}
}

// Menu renders the landing page.
func (r *Renderer) Menu(w io.Writer, v *MenuView) error {
	v.Page = r.page("ArcGIS Patch Browser", "menu", "")
	return execute(r.menu, w, v)
}

// Patches renders the patch table page.
func (r *Renderer) Patches(w io.Writer, v *PatchView) error {
	v.Page = r.page("Patches", "patches", "patches")
	return execute(r.patches, w, v)
}

// Software renders the installer table page.
func (r *Renderer) Software(w io.Writer, v *SoftwareView) error {
	v.Page = r.page("Software", "software", "software")
	return execute(r.software, w, v)
}

func execute(t *template.Template, w io.Writer, data interface{}) error {
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

// Snapshot is everything a static export needs.
type Snapshot struct {
	Sheets      patch.Sheets
	ActiveSheet string
	Software    []software.Row
	Feeds       []FeedSummary
}

// WriteSnapshot writes index.html, patches.html and software.html into dir.
// The patch page holds every row of the active sheet. progress, if non-nil, is
// called after each file is written.
func WriteSnapshot(dir string, snap Snapshot, progress func(path string)) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	r, err := NewRenderer(true)
	if err != nil {
		return nil, err
	}

	feeds := make([]FeedSummary, len(snap.Feeds))
	copy(feeds, snap.Feeds)
	for i := range feeds {
		switch strings.ToLower(feeds[i].Label) {
		case "patches":
			feeds[i].Link = StaticLinks.Patches
		case "software":
			feeds[i].Link = StaticLinks.Software
		}
	}

	files := []struct {
		name   string
		render func(io.Writer) error
	}{
		{StaticLinks.Menu, func(w io.Writer) error {
			return r.Menu(w, &MenuView{Feeds: feeds})
		}},
		{StaticLinks.Patches, func(w io.Writer) error {
			return r.Patches(w, NewPatchView(snap.Sheets, snap.ActiveSheet, patch.Query{Limit: -1}))
		}},
		{StaticLinks.Software, func(w io.Writer) error {
			return r.Software(w, NewSoftwareView(snap.Software, software.Query{}))
		}},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.render); err != nil {
			return written, err
		}
		written = append(written, path)
		if progress != nil {
			progress(path)
		}
	}
	return written, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create HTML file: %w", err)
	}
	if err := render(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

var printer = message.NewPrinter(language.English)

// templateFuncs returns custom template functions
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"thousands": func(n int) string {
			return printer.Sprintf("%d", n)
		},
	}
}
