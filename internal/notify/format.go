package notify

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/paradisestayz/staywatch/internal/report"
)

// reportHTML renders the cleaning report the way staff read it: a
// summary box followed by one table per movement.
var reportHTML = template.Must(template.New("report").Funcs(template.FuncMap{
	"orDash": func(s string) string {
		if s == "" {
			return "-"
		}
		return s
	},
}).Parse(`
<div style="font-family: sans-serif; line-height: 1.6; color: #333;">
  <h2 style="color: #2c3e50;">Cleaning Reports for {{.DateLabel}}</h2>

  <div style="margin-bottom: 20px; padding: 15px; background-color: #e8f4fd; border-radius: 5px;">
    <strong>Summary:</strong><br>
    Checking In: <b>{{.ArrivalCount}}</b> rooms<br>
    Checking Out: <b>{{.DepartureCount}}</b> rooms
  </div>

  {{range .Sections}}
  <h3>{{.Title}}</h3>
  {{if .Records}}
  <table border="0" cellpadding="6" cellspacing="0" style="border-collapse: collapse; width: 100%;">
    <tr style="background-color: #2c3e50; color: #fff;">
      <th align="left">Room</th><th align="left">Room Type</th><th align="left">Guest</th><th align="left">PAX</th><th align="left">{{.TimeLabel}}</th>
    </tr>
    {{range .Records}}
    <tr style="border-bottom: 1px solid #ddd;">
      <td><b>{{.Room}}</b></td>
      <td>{{orDash .RoomType}}</td>
      <td>{{.GuestName}}</td>
      <td>{{.Adults}} adults<br>{{.Children}} children<br>{{.Infants}} infants</td>
      <td><b>{{orDash .Time}}</b></td>
    </tr>
    {{end}}
  </table>
  {{else}}
  <p><i>None.</i></p>
  {{end}}
  {{end}}

  <hr style="border: 0; border-top: 1px solid #eee; margin: 20px 0;">
  <p style="font-size: 0.9em; color: #777;"><i>Attached: raw report exports</i></p>
</div>`))

type reportSection struct {
	Title     string
	TimeLabel string
	Records   []report.Record
}

// BuildReportMessage assembles the notification for one completed run.
func BuildReportMessage(dateLabel string, arrivals, departures []report.Record, attachments []Attachment) Message {
	summaryArr := fmt.Sprintf("%d checking in", len(arrivals))
	summaryDep := fmt.Sprintf("%d checking out", len(departures))

	// A range label means the week-ahead run.
	heading := "Tomorrow's Cleaning"
	if strings.Contains(dateLabel, " to ") {
		heading = "Week Ahead Cleaning"
	}
	subject := fmt.Sprintf("%s %s: %s, %s", heading, dateLabel, summaryArr, summaryDep)

	body := fmt.Sprintf(`Hi,

Please find attached the cleaning reports for %s.

Summary:
- Arrivals: %s
- Departures: %s

See the email content for the detailed list.
`, dateLabel, summaryArr, summaryDep)

	var html strings.Builder
	err := reportHTML.Execute(&html, map[string]any{
		"DateLabel":      dateLabel,
		"ArrivalCount":   len(arrivals),
		"DepartureCount": len(departures),
		"Sections": []reportSection{
			{Title: "Arrivals", TimeLabel: "Check-in", Records: arrivals},
			{Title: "Departures", TimeLabel: "Check-out", Records: departures},
		},
	})
	if err != nil {
		// Template data is fully under our control; fall back to the
		// plain body rather than dropping the notification.
		html.Reset()
		html.WriteString("<pre>" + template.HTMLEscapeString(body) + "</pre>")
	}

	return Message{
		Subject:     subject,
		Body:        body,
		HTMLBody:    html.String(),
		Attachments: attachments,
	}
}

// BuildEscalationMessage assembles the operator-facing failure alert.
func BuildEscalationMessage(reason string) Message {
	return Message{
		Subject: "CRITICAL: staywatch automation FAILED",
		Body: fmt.Sprintf("URGENT: the occupancy report automation failed.\n\nError: %s\n\nPlease check the server immediately.",
			reason),
	}
}
