package notifications

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"kairo-backend/internal/reservations"
)

const clientConfirmationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Bonjour {{.Name}},</p>
  <p>Merci pour votre demande. Votre rendez-vous est enregistré et sera confirmé rapidement.</p>
  <ul>
    <li>Type : {{.TypeLabel}}</li>
    <li>Date : {{.Date}}</li>
    <li>Heure : {{.Start}} - {{.End}} ({{.Timezone}})</li>
    <li>Format : {{.MethodLabel}}</li>
    <li>Référence : {{.ID}}</li>
  </ul>
  <p><a href="{{.CalendarURL}}">Ajouter à mon agenda</a></p>
  <p>Un empêchement ? <a href="{{.CancelURL}}">Annuler ce rendez-vous</a></p>
  <p>À très bientôt,<br>{{.SenderName}}</p>
</body>
</html>`

const adminNotificationTemplate = `<!DOCTYPE html>
<html>
<body>
  <p>Nouvelle demande de rendez-vous.</p>
  <ul>
    <li>Client : {{.Name}} &lt;{{.Email}}&gt;</li>
    {{- if .Phone}}
    <li>Téléphone : {{.Phone}}</li>
    {{- end}}
    <li>Type : {{.TypeLabel}}</li>
    <li>Date : {{.Date}} {{.Start}} - {{.End}}</li>
    <li>Format : {{.MethodLabel}}</li>
  </ul>
  <p>Projet :</p>
  <blockquote>{{.Description}}</blockquote>
  <p><a href="{{.AdminURL}}">Ouvrir dans le back-office</a></p>
</body>
</html>`

var (
	clientConfirmationTmpl = template.Must(template.New("client_confirmation").Parse(clientConfirmationTemplate))
	adminNotificationTmpl  = template.Must(template.New("admin_notification").Parse(adminNotificationTemplate))
)

type reservationView struct {
	ID          string
	Name        string
	Email       string
	Phone       string
	TypeLabel   string
	MethodLabel string
	Description string
	Date        string
	Start       string
	End         string
	Timezone    string
	CalendarURL string
	CancelURL   string
	AdminURL    string
	SenderName  string
}

func (d *Dispatcher) view(r reservations.Reservation) reservationView {
	start := r.StartTime.In(d.location)
	end := r.EndTime.In(d.location)
	return reservationView{
		ID:          r.ID,
		Name:        r.ClientName,
		Email:       r.ClientEmail,
		Phone:       r.ClientPhone,
		TypeLabel:   reservationTypeLabel(r.Type),
		MethodLabel: communicationMethodLabel(r.CommunicationMethod),
		Description: r.ProjectDescription,
		Date:        start.Format("02/01/2006"),
		Start:       start.Format("15:04"),
		End:         end.Format("15:04"),
		Timezone:    d.location.String(),
		CalendarURL: calendarURL(r, d.senderName),
		CancelURL:   d.siteURL + "/reservation/annuler?" + url.Values{"id": {r.ID}, "token": {r.CancellationToken}}.Encode(),
		AdminURL:    d.siteURL + "/admin/reservations/" + url.PathEscape(r.ID),
		SenderName:  d.senderName,
	}
}

func render(t *template.Template, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func clientConfirmationText(v reservationView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Bonjour %s,\n\n", v.Name)
	b.WriteString("Merci pour votre demande. Votre rendez-vous est enregistré et sera confirmé rapidement.\n\n")
	fmt.Fprintf(&b, "Type : %s\nDate : %s\nHeure : %s - %s (%s)\nFormat : %s\nRéférence : %s\n\n",
		v.TypeLabel, v.Date, v.Start, v.End, v.Timezone, v.MethodLabel, v.ID)
	fmt.Fprintf(&b, "Ajouter à mon agenda : %s\n", v.CalendarURL)
	fmt.Fprintf(&b, "Annuler ce rendez-vous : %s\n\n", v.CancelURL)
	fmt.Fprintf(&b, "À très bientôt,\n%s\n", v.SenderName)
	return b.String()
}

func adminNotificationText(v reservationView) string {
	var b strings.Builder
	b.WriteString("Nouvelle demande de rendez-vous.\n\n")
	fmt.Fprintf(&b, "Client : %s <%s>\n", v.Name, v.Email)
	if v.Phone != "" {
		fmt.Fprintf(&b, "Téléphone : %s\n", v.Phone)
	}
	fmt.Fprintf(&b, "Type : %s\nDate : %s %s - %s\nFormat : %s\n\nProjet :\n%s\n\n%s\n",
		v.TypeLabel, v.Date, v.Start, v.End, v.MethodLabel, v.Description, v.AdminURL)
	return b.String()
}

func cancellationText(v reservationView, forAdmin bool) string {
	if forAdmin {
		return fmt.Sprintf("Le rendez-vous de %s <%s> du %s à %s a été annulé.\n\n%s\n", v.Name, v.Email, v.Date, v.Start, v.AdminURL)
	}
	return fmt.Sprintf("Bonjour %s,\n\nVotre rendez-vous du %s à %s a bien été annulé.\n\nÀ bientôt,\n%s\n", v.Name, v.Date, v.Start, v.SenderName)
}

// calendarURL builds a Google Calendar "add event" link.
func calendarURL(r reservations.Reservation, organizer string) string {
	const layout = "20060102T150405Z"
	q := url.Values{}
	q.Set("action", "TEMPLATE")
	q.Set("text", fmt.Sprintf("%s - %s", reservationTypeLabel(r.Type), organizer))
	q.Set("dates", r.StartTime.UTC().Format(layout)+"/"+r.EndTime.UTC().Format(layout))
	q.Set("details", "Référence : "+r.ID)
	return "https://calendar.google.com/calendar/render?" + q.Encode()
}

func reservationTypeLabel(value string) string {
	switch value {
	case reservations.TypeDiscovery:
		return "Appel découverte"
	case reservations.TypeConsultation:
		return "Consultation"
	case reservations.TypePresentation:
		return "Présentation"
	case reservations.TypeFollowUp:
		return "Point de suivi"
	default:
		return value
	}
}

func communicationMethodLabel(value string) string {
	switch value {
	case reservations.MethodVideo:
		return "Visioconférence"
	case reservations.MethodPhone:
		return "Téléphone"
	default:
		return value
	}
}

func formatDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("02/01/2006")
}
