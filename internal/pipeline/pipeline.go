package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/terminal-bench/civicfix/internal/models"
	"github.com/terminal-bench/civicfix/internal/routing"
	"github.com/terminal-bench/civicfix/internal/services/geocode"
	"github.com/terminal-bench/civicfix/internal/services/notify"
	"github.com/terminal-bench/civicfix/internal/services/photo"
)

const attachmentName = "issue_report.jpg"

// Options carries the policy knobs for a Pipeline.
type Options struct {
	// DefaultContact receives reports that match no routing rule at any
	// tier. Must be non-empty.
	DefaultContact string

	// ExternalTimeout bounds each geocode and notify call. An unbounded
	// external call would let one slow provider wedge every submission.
	ExternalTimeout time.Duration
}

// Pipeline orchestrates a report submission: validate, geocode, resolve the
// contact, normalize the photo, notify. It holds no per-request state, so
// concurrent submissions need no coordination.
type Pipeline struct {
	geocoder   geocode.Geocoder
	table      *routing.Table
	normalizer *photo.Normalizer
	notifier   notify.Notifier
	opts       Options
}

// New creates a pipeline over the given collaborators.
func New(g geocode.Geocoder, t *routing.Table, n *photo.Normalizer, nt notify.Notifier, opts Options) *Pipeline {
	if opts.ExternalTimeout <= 0 {
		opts.ExternalTimeout = 10 * time.Second
	}
	return &Pipeline{
		geocoder:   g,
		table:      t,
		normalizer: n,
		notifier:   nt,
		opts:       opts,
	}
}

// Submit runs the report through the full pipeline. Each stage failure is
// terminal and returned as a *Error classified by stage; nothing is retried.
func (p *Pipeline) Submit(ctx context.Context, report models.Report) (*models.SubmissionResult, error) {
	if err := validate(report); err != nil {
		return nil, err
	}

	addr, err := p.resolveAddress(ctx, report)
	if err != nil {
		return nil, err
	}
	log.Printf("report %s: geocoded (%f, %f) to city=%q district=%q",
		report.ID, report.Lat, report.Lon, addr.City, addr.District)

	// Resolved exactly once; everything downstream uses this target.
	target := p.resolveTarget(addr, report.IssueType)
	if target.Rule == nil {
		log.Printf("report %s: no routing rule matched, using default contact", report.ID)
	} else {
		log.Printf("report %s: matched rule %d, target %s", report.ID, target.Rule.ID, target.ContactEmail)
	}

	normalized, err := p.normalizer.Normalize(report.Photo)
	if err != nil {
		return nil, &Error{Kind: KindImage, Err: err}
	}

	if err := p.dispatch(ctx, report, addr, target, normalized); err != nil {
		return nil, err
	}
	log.Printf("report %s: notified %s", report.ID, target.ContactEmail)

	return &models.SubmissionResult{
		Recipient:          target.ContactEmail,
		UsedDefaultContact: target.Rule == nil,
	}, nil
}

func validate(report models.Report) error {
	if report.IssueType == "" {
		return stageErr(KindValidation, "issue type is required")
	}
	if report.Lat < -90 || report.Lat > 90 {
		return stageErr(KindValidation, "latitude %f out of range", report.Lat)
	}
	if report.Lon < -180 || report.Lon > 180 {
		return stageErr(KindValidation, "longitude %f out of range", report.Lon)
	}
	if len(report.Photo) == 0 {
		return stageErr(KindValidation, "photo is required")
	}
	return nil
}

func (p *Pipeline) resolveAddress(ctx context.Context, report models.Report) (models.Address, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ExternalTimeout)
	defer cancel()

	addr, err := p.geocoder.Reverse(ctx, report.Lat, report.Lon)
	if err != nil {
		return models.Address{}, &Error{Kind: KindAddressUnresolved, Err: err}
	}
	if addr.City == "" {
		return models.Address{}, stageErr(KindAddressUnresolved,
			"no city for coordinates (%f, %f)", report.Lat, report.Lon)
	}
	return addr, nil
}

// resolveTarget applies the tiered lookup and substitutes the default
// contact on a table-wide miss. Absence of a match is a valid outcome, not
// an error.
func (p *Pipeline) resolveTarget(addr models.Address, issueType string) models.ResolvedTarget {
	rule, ok := p.table.FindBestMatch(addr.City, addr.District, issueType)
	if !ok {
		return models.ResolvedTarget{ContactEmail: p.opts.DefaultContact}
	}
	return models.ResolvedTarget{ContactEmail: rule.ContactEmail, Rule: &rule}
}

func (p *Pipeline) dispatch(ctx context.Context, report models.Report, addr models.Address, target models.ResolvedTarget, photoData []byte) error {
	ctx, cancel := context.WithTimeout(ctx, p.opts.ExternalTimeout)
	defer cancel()

	msg := notify.Message{
		To:       target.ContactEmail,
		Subject:  fmt.Sprintf("New Civic Issue Report: %s in %s", report.IssueType, addr.City),
		HTMLBody: composeBody(report, addr),
		Attachment: notify.Attachment{
			Name:    attachmentName,
			Content: photoData,
		},
	}

	if err := p.notifier.Send(ctx, msg); err != nil {
		return &Error{Kind: KindNotify, Err: err}
	}
	return nil
}

func composeBody(report models.Report, addr models.Address) string {
	location := addr.City
	if addr.District != "" {
		location = addr.City + ", " + addr.District
	}
	mapLink := fmt.Sprintf("https://www.google.com/maps?q=%f,%f", report.Lat, report.Lon)

	return fmt.Sprintf(
		"<h1>New Civic Issue Report Received</h1>"+
			"<p><b>Issue Type:</b> %s</p>"+
			"<p><b>Location:</b> %s</p>"+
			"<p>A new report has been submitted via the CivicFix Reporter app.</p>"+
			"<p>Approximate Location on Google Maps: <a href='%s'>Click Here</a></p>",
		report.IssueType, location, mapLink)
}
