// Package markdown renders a human-readable summary of an audit report.
package markdown

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	md "github.com/nao1215/markdown"

	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
	"github.com/khanhnv2901/seca-webaudit/internal/infrastructure/persistence/json"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-webaudit/internal/shared/errors"
	"github.com/khanhnv2901/seca-webaudit/internal/shared/security"
)

// SummaryRepository writes a Markdown summary next to each JSON report.
type SummaryRepository struct {
	outputDir string
	mu        sync.Mutex
}

// NewSummaryRepository creates a repository writing into outputDir.
func NewSummaryRepository(outputDir string) (*SummaryRepository, error) {
	if outputDir == "" {
		return nil, fmt.Errorf("%w: output directory", sharedErrors.ErrMissingRequired)
	}
	if err := os.MkdirAll(outputDir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return &SummaryRepository{outputDir: outputDir}, nil
}

// Save renders the report and returns the summary path.
func (r *SummaryRepository) Save(ctx context.Context, report *audit.Report) (string, error) {
	if !report.IsSealed() {
		return "", sharedErrors.ErrReportNotSealed
	}

	path, err := security.ResolveWithin(r.outputDir, summaryName(report))
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, constants.DefaultFilePerm)
	if err != nil {
		return "", fmt.Errorf("failed to create summary file: %w", err)
	}
	if err := Write(f, report); err != nil {
		_ = f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close summary file: %w", err)
	}
	return path, nil
}

// Discard removes the summary written by Save.
func (r *SummaryRepository) Discard(ctx context.Context, report *audit.Report) error {
	path, err := security.ResolveWithin(r.outputDir, summaryName(report))
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove summary file: %w", err)
	}
	return nil
}

func summaryName(report *audit.Report) string {
	return strings.TrimSuffix(json.FileName(report), ".json") + ".md"
}

// Write renders report as Markdown to w.
func Write(w io.Writer, report *audit.Report) error {
	doc := md.NewMarkdown(w)

	writeHeader(doc, report)
	writeProbes(doc, report)
	writeSecurity(doc, report)
	writeThirdParty(doc, report)
	writeBrokenLinks(doc, report)

	doc.HorizontalRule()
	doc.PlainTextf("*Report %s*", report.ID())

	if err := doc.Build(); err != nil {
		return fmt.Errorf("render markdown summary: %w", err)
	}
	return nil
}

func writeHeader(doc *md.Markdown, report *audit.Report) {
	perf := report.Performance().Data
	doc.H1("Website Audit: " + report.Target().Host())
	doc.PlainText("")
	doc.Table(md.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"URL", "`" + report.Target().String() + "`"},
			{"Timestamp", report.TimestampISO()},
			{"Overall Score", "**" + strconv.Itoa(report.OverallScore()) + "**"},
			{"Score Formula", report.ScoreFormula()},
			{"Performance", strconv.Itoa(perf.Score)},
			{"Security", fmt.Sprintf("%d (%s)", report.Security().Data.Score, report.Security().Data.Grade)},
			{"Accessibility Headings", strconv.Itoa(report.Accessibility().Data.Headings.Total)},
		},
	})
	doc.PlainText("")

	if failed := report.FailedProbes(); len(failed) > 0 {
		names := make([]string, len(failed))
		for i, k := range failed {
			names[i] = k.String()
		}
		doc.Warningf("%d probe(s) fell back to empty results: %s", len(failed), strings.Join(names, ", "))
		doc.PlainText("")
	}
}

func writeProbes(doc *md.Markdown, report *audit.Report) {
	add := report.Additional()
	rows := [][]string{
		probeRow(report.Performance().Kind, report.Performance().Status, report.Performance().DurationMS, report.Performance().Error),
		probeRow(report.Security().Kind, report.Security().Status, report.Security().DurationMS, report.Security().Error),
		probeRow(report.Accessibility().Kind, report.Accessibility().Status, report.Accessibility().DurationMS, report.Accessibility().Error),
		probeRow(add.Forms.Kind, add.Forms.Status, add.Forms.DurationMS, add.Forms.Error),
		probeRow(add.PWA.Kind, add.PWA.Status, add.PWA.DurationMS, add.PWA.Error),
		probeRow(add.Backlinks.Kind, add.Backlinks.Status, add.Backlinks.DurationMS, add.Backlinks.Error),
		probeRow(add.Interactions.Kind, add.Interactions.Status, add.Interactions.DurationMS, add.Interactions.Error),
		probeRow(add.ThirdParty.Kind, add.ThirdParty.Status, add.ThirdParty.DurationMS, add.ThirdParty.Error),
	}

	doc.H2("Probes")
	doc.PlainText("")
	doc.Table(md.TableSet{
		Header: []string{"Probe", "Status", "Duration", "Error"},
		Rows:   rows,
	})
	doc.PlainText("")
}

func probeRow(kind audit.ProbeKind, status audit.Status, ms int64, errMsg string) []string {
	return []string{kind.String(), string(status), fmt.Sprintf("%dms", ms), errMsg}
}

func writeSecurity(doc *md.Markdown, report *audit.Report) {
	sec := report.Security().Data
	doc.H2("Security Headers")
	doc.PlainText("")

	names := make([]string, 0, len(sec.Headers))
	for name := range sec.Headers {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		state := "missing"
		if sec.Headers[name] {
			state = "present"
		}
		rows = append(rows, []string{name, state, strings.Join(sec.Issues[name], "; ")})
	}
	if len(rows) > 0 {
		doc.Table(md.TableSet{Header: []string{"Header", "State", "Issues"}, Rows: rows})
		doc.PlainText("")
	}

	if len(sec.Recommendations) > 0 {
		items := make([]string, len(sec.Recommendations))
		for i, rec := range sec.Recommendations {
			items[i] = fmt.Sprintf("[%s] %s", rec.Priority, rec.Message)
		}
		doc.BulletList(items...)
		doc.PlainText("")
	}
}

func writeThirdParty(doc *md.Markdown, report *audit.Report) {
	tp := report.Additional().ThirdParty.Data
	doc.H2("Third-Party Services")
	doc.PlainText("")
	if tp.TotalThirdPartyHosts == 0 {
		doc.PlainText("No third-party requests observed.")
		doc.PlainText("")
		return
	}

	hosts := make([]string, 0, len(tp.Details))
	for host := range tp.Details {
		hosts = append(hosts, host)
	}
	sort.Strings(hosts)

	rows := make([][]string, 0, len(hosts))
	for _, host := range hosts {
		s := tp.Details[host]
		rows = append(rows, []string{host, string(s.Category), strconv.Itoa(s.RequestCount), strings.Join(s.ResourceTypes, ", ")})
	}
	doc.Table(md.TableSet{Header: []string{"Host", "Category", "Requests", "Resource Types"}, Rows: rows})
	doc.PlainText("")
}

func writeBrokenLinks(doc *md.Markdown, report *audit.Report) {
	links := report.Additional().Backlinks.Data
	doc.H2("Links")
	doc.PlainText("")
	doc.PlainTextf("Checked %d of %d links, %d healthy.", links.Checked, links.TotalLinks, links.Healthy)
	doc.PlainText("")
	if len(links.Broken) == 0 {
		return
	}

	rows := make([][]string, 0, len(links.Broken))
	for _, b := range links.Broken {
		reason := b.Error
		if b.Status > 0 {
			reason = strconv.Itoa(b.Status)
		}
		rows = append(rows, []string{b.URL, reason})
	}
	doc.Table(md.TableSet{Header: []string{"Broken URL", "Reason"}, Rows: rows})
	doc.PlainText("")
}
