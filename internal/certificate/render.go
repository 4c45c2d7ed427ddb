package certificate

import (
	"fmt"
	"html/template"
	"io"
	"time"
)

var certificateTemplate = template.Must(template.New("certificate").Funcs(template.FuncMap{
	"formatAmount": formatAmountMinor,
	"formatDate":   func(t time.Time) string { return t.Format("02 January 2006") },
	"formatHours":  func(h float64) string { return fmt.Sprintf("%.1f", h) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: Georgia, serif; background: #f4f1ea; margin: 0; padding: 40px; }
  .certificate { max-width: 760px; margin: 0 auto; background: #fff; border: 6px double #b0a060; padding: 56px; text-align: center; }
  .certificate h1 { font-size: 30px; letter-spacing: 2px; margin-bottom: 4px; }
  .certificate .number { color: #888; font-size: 13px; margin-bottom: 32px; }
  .certificate .recipient { font-size: 26px; margin: 18px 0; }
  .certificate .detail { font-size: 15px; color: #444; margin: 6px 0; }
  .certificate .issued { margin-top: 40px; font-size: 14px; color: #666; }
</style>
</head>
<body>
<div class="certificate">
  <h1>{{.Title}}</h1>
  <div class="number">Certificate No. {{.Number}}</div>
  <p class="detail">This certificate is proudly presented to</p>
  <div class="recipient">{{.Metadata.RecipientName}}</div>
{{- if eq .Type "donation"}}
  <p class="detail">in recognition of a generous contribution of {{formatAmount .Metadata.ContributionAmountMinor}}</p>
  <p class="detail">towards <strong>{{.Metadata.CampaignTitle}}</strong></p>
  <p class="detail">organised by {{.Metadata.NGOName}}</p>
{{- else}}
  <p class="detail">in recognition of volunteer service for <strong>{{.Metadata.ActivityTitle}}</strong></p>
  {{- if .Metadata.AssignedTask}}
  <p class="detail">serving as {{.Metadata.AssignedTask}}</p>
  {{- end}}
  {{- if gt .Metadata.ActivityHours 0.0}}
  <p class="detail">contributing {{formatHours .Metadata.ActivityHours}} hours</p>
  {{- end}}
  <p class="detail">with {{.Metadata.NGOName}}</p>
{{- end}}
  <div class="issued">Issued on {{formatDate .IssuedAt}}</div>
</div>
</body>
</html>
`))

// Render writes the printable HTML view of the certificate.
func Render(w io.Writer, cert *Certificate) error {
	return certificateTemplate.Execute(w, cert)
}

// Slug is the suggested download filename, e.g.
// certificate-DON-20260901-000042.html.
func (c *Certificate) Slug() string {
	return fmt.Sprintf("certificate-%s.html", c.Number)
}

func formatAmountMinor(minor int64) string {
	rupees := minor / 100
	paise := minor % 100
	if paise == 0 {
		return fmt.Sprintf("₹%d", rupees)
	}
	return fmt.Sprintf("₹%d.%02d", rupees, paise)
}
