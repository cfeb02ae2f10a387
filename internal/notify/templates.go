package notify

import (
	"bytes"
	"fmt"
	"html/template"
)

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>Booking Confirmed</h2>
<p>Hi {{.CustomerName}},</p>
<p>Your booking for <strong>{{.ServiceName}}</strong> is confirmed.</p>
{{if .ScheduledAt}}<p><strong>Scheduled for:</strong> {{.ScheduledAt}}</p>{{end}}
{{if .MeetLink}}<p><strong>Meeting link:</strong> <a href="{{.MeetLink}}">{{.MeetLink}}</a></p>{{end}}
<p><strong>Amount paid:</strong> {{.Amount}}</p>
<p><strong>Reference:</strong> {{.Reference}}</p>
<p>We will be in touch with next steps. Reply to this email if you have any questions.</p>
</body></html>`))

var receiptTmpl = template.Must(template.New("receipt").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>Payment Receipt</h2>
<p>Hi {{.CustomerName}},</p>
<table cellpadding="6">
<tr><td>Service</td><td>{{.ServiceName}}</td></tr>
<tr><td>Amount</td><td>{{.Amount}}</td></tr>
<tr><td>Reference</td><td>{{.Reference}}</td></tr>
<tr><td>Status</td><td>Paid</td></tr>
</table>
<p>Thank you for your payment.</p>
</body></html>`))

var reminderTmpl = template.Must(template.New("reminder").Parse(`<!DOCTYPE html>
<html><body style="font-family:Arial,sans-serif;color:#1f2937">
<h2>Session Reminder</h2>
<p>Hi {{.CustomerName}},</p>
<p>This is a reminder that your <strong>{{.ServiceName}}</strong> session is coming up.</p>
{{if .ScheduledAt}}<p><strong>When:</strong> {{.ScheduledAt}}</p>{{end}}
{{if .MeetLink}}<p><strong>Join:</strong> <a href="{{.MeetLink}}">{{.MeetLink}}</a></p>{{end}}
<p>See you soon.</p>
</body></html>`))

var reportTmpl = template.Must(template.New("report").Parse(
	"<b>New paid booking</b>\n" +
		"Customer: {{.CustomerName}} ({{.To}})\n" +
		"Service: {{.ServiceName}}\n" +
		"{{if .ScheduledAt}}When: {{.ScheduledAt}}\n{{end}}" +
		"Amount: {{.Amount}}\n" +
		"Reference: <code>{{.Reference}}</code>"))

func render(t *template.Template, msg Message) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, msg); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

// ConfirmationEmail renders the booking confirmation.
func ConfirmationEmail(msg Message) (Email, error) {
	msg = msg.withDefaults()
	body, err := render(confirmationTmpl, msg)
	return Email{To: msg.To, Subject: "Booking Confirmed - " + msg.ServiceName, HTML: body}, err
}

// ReceiptEmail renders the payment receipt.
func ReceiptEmail(msg Message) (Email, error) {
	msg = msg.withDefaults()
	body, err := render(receiptTmpl, msg)
	return Email{To: msg.To, Subject: "Payment Receipt - " + msg.Reference, HTML: body}, err
}

// ReminderEmail renders the day-before session reminder.
func ReminderEmail(msg Message) (Email, error) {
	msg = msg.withDefaults()
	body, err := render(reminderTmpl, msg)
	return Email{To: msg.To, Subject: "Reminder: " + msg.ServiceName + " Tomorrow", HTML: body}, err
}

// AdminReport renders the Telegram notice for a new paid booking.
func AdminReport(msg Message) (string, error) {
	return render(reportTmpl, msg.withDefaults())
}
