package probe

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/khanhnv2901/seca-webaudit/internal/browser"
	"github.com/khanhnv2901/seca-webaudit/internal/domain/audit"
)

// csrfFieldNames are hidden input names used by common frameworks for
// synchronizer tokens.
var csrfFieldNames = []string{
	"csrf",
	"_csrf",
	"csrf_token",
	"csrfmiddlewaretoken",
	"authenticity_token",
	"__requestverificationtoken",
	"_token",
}

var csrfMetaNames = []string{"csrf-token", "_csrf", "xsrf-token"}

// Forms inspects every form of the rendered page.
func (p *Probes) Forms(ctx context.Context, env Env) audit.Outcome[audit.FormsData] {
	return Run(ctx, env, audit.KindForms, func(ctx context.Context) (audit.FormsData, error) {
		return withPage(ctx, env, func(page browser.Page) (audit.FormsData, error) {
			doc, _, err := p.loadDocument(ctx, env, page)
			if err != nil {
				return audit.FormsData{}, err
			}
			return AnalyzeForms(doc), nil
		})
	}, audit.FallbackForms)
}

// AnalyzeForms reports fields, validation attributes, CSRF tokens and submit
// controls per form.
func AnalyzeForms(doc *goquery.Document) audit.FormsData {
	data := audit.FallbackForms()

	for _, name := range csrfMetaNames {
		if v, ok := metaContent(doc, name); ok && v != "" {
			data.MetaCSRFToken = true
			break
		}
	}

	doc.Find("form").Each(func(i int, sel *goquery.Selection) {
		form := audit.Form{
			Index:      i,
			ID:         attr(sel, "id"),
			Action:     attr(sel, "action"),
			Method:     strings.ToUpper(attr(sel, "method")),
			Fields:     []audit.FormField{},
			NoValidate: sel.Is("[novalidate]"),
		}
		if form.Method == "" {
			form.Method = "GET"
		}

		sel.Find("input, select, textarea").Each(func(_ int, f *goquery.Selection) {
			tag := goquery.NodeName(f)
			typ := strings.ToLower(attr(f, "type"))
			if tag == "input" && typ == "" {
				typ = "text"
			}

			if typ == "hidden" {
				if isCSRFField(attr(f, "name")) {
					form.HasCSRFToken = true
				}
				return
			}
			if typ == "submit" || typ == "image" {
				form.HasSubmit = true
				return
			}
			if typ == "button" || typ == "reset" {
				return
			}

			_, required := f.Attr("required")
			field := audit.FormField{
				Name:      attr(f, "name"),
				Tag:       tag,
				Type:      typ,
				Required:  required,
				Pattern:   attr(f, "pattern"),
				Min:       attr(f, "min"),
				Max:       attr(f, "max"),
				MinLength: attr(f, "minlength"),
				MaxLength: attr(f, "maxlength"),
			}
			form.Fields = append(form.Fields, field)
		})

		sel.Find("button").Each(func(_ int, b *goquery.Selection) {
			t := strings.ToLower(attr(b, "type"))
			if t == "" || t == "submit" {
				form.HasSubmit = true
			}
		})

		data.Forms = append(data.Forms, form)
		data.Summary.TotalForms++
		data.Summary.TotalFields += len(form.Fields)
		for _, f := range form.Fields {
			if f.HasValidation() {
				data.Summary.FieldsWithValidation++
			}
		}
		if form.HasCSRFToken {
			data.Summary.FormsWithCSRFToken++
		}
		if form.HasSubmit {
			data.Summary.FormsWithSubmit++
		}
	})
	return data
}

func isCSRFField(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, n := range csrfFieldNames {
		if name == n {
			return true
		}
	}
	return false
}

func attr(sel *goquery.Selection, name string) string {
	v, _ := sel.Attr(name)
	return strings.TrimSpace(v)
}
