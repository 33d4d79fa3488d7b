package audit

import (
	"maps"
	"slices"
)

// Clone methods return deep copies so a sealed report never shares mutable
// state with its readers. nil maps and slices stay nil.

func (d PerformanceData) Clone() PerformanceData {
	d.Categories = maps.Clone(d.Categories)
	d.Metrics = maps.Clone(d.Metrics)
	return d
}

func (d SecurityData) Clone() SecurityData {
	d.Headers = maps.Clone(d.Headers)
	d.Values = maps.Clone(d.Values)
	if d.Issues != nil {
		issues := make(map[string][]string, len(d.Issues))
		for k, v := range d.Issues {
			issues[k] = slices.Clone(v)
		}
		d.Issues = issues
	}
	d.Recommendations = slices.Clone(d.Recommendations)
	d.Warnings = slices.Clone(d.Warnings)
	d.Cookies = slices.Clone(d.Cookies)
	return d
}

func (d AccessibilityData) Clone() AccessibilityData {
	d.Headings.ByLevel = maps.Clone(d.Headings.ByLevel)
	d.Headings.SkippedLevels = slices.Clone(d.Headings.SkippedLevels)
	d.Landmarks = maps.Clone(d.Landmarks)
	return d
}

func (d FormsData) Clone() FormsData {
	if d.Forms != nil {
		forms := make([]Form, len(d.Forms))
		for i, f := range d.Forms {
			f.Fields = slices.Clone(f.Fields)
			forms[i] = f
		}
		d.Forms = forms
	}
	return d
}

func (d PWAData) Clone() PWAData {
	return d
}

func (d BacklinksData) Clone() BacklinksData {
	d.Broken = slices.Clone(d.Broken)
	return d
}

func (e InteractiveElement) clone() InteractiveElement {
	if e.ValueBefore != nil {
		v := *e.ValueBefore
		e.ValueBefore = &v
	}
	if e.ValueAfter != nil {
		v := *e.ValueAfter
		e.ValueAfter = &v
	}
	return e
}

func cloneElements(elements []InteractiveElement) []InteractiveElement {
	if elements == nil {
		return nil
	}
	out := make([]InteractiveElement, len(elements))
	for i, e := range elements {
		out[i] = e.clone()
	}
	return out
}

func (d InteractionData) Clone() InteractionData {
	d.Buttons = cloneElements(d.Buttons)
	d.Inputs = cloneElements(d.Inputs)
	d.CORSProbe = maps.Clone(d.CORSProbe)
	d.CORSIssues = slices.Clone(d.CORSIssues)
	d.Batches.ButtonBatches = slices.Clone(d.Batches.ButtonBatches)
	d.Batches.InputBatches = slices.Clone(d.Batches.InputBatches)
	return d
}

func (d ThirdPartyData) Clone() ThirdPartyData {
	d.CategorySummary = maps.Clone(d.CategorySummary)
	if d.Details != nil {
		details := make(map[string]*ThirdPartyService, len(d.Details))
		for host, svc := range d.Details {
			if svc == nil {
				details[host] = nil
				continue
			}
			c := *svc
			c.ResourceTypes = slices.Clone(svc.ResourceTypes)
			details[host] = &c
		}
		d.Details = details
	}
	return d
}

// cloneOutcome copies o with its payload deep-copied by clone.
func cloneOutcome[T any](o Outcome[T], clone func(T) T) Outcome[T] {
	o.Data = clone(o.Data)
	return o
}

// Clone deep-copies every outcome.
func (a Additional) Clone() Additional {
	return Additional{
		Forms:        cloneOutcome(a.Forms, FormsData.Clone),
		PWA:          cloneOutcome(a.PWA, PWAData.Clone),
		Backlinks:    cloneOutcome(a.Backlinks, BacklinksData.Clone),
		Interactions: cloneOutcome(a.Interactions, InteractionData.Clone),
		ThirdParty:   cloneOutcome(a.ThirdParty, ThirdPartyData.Clone),
	}
}
