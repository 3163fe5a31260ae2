package notifications

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"kairo-backend/internal/reservations"
)

// Dispatcher composes the booking and contact emails and hands them to a
// Sender. Messages of one event are sent concurrently; a failed send never
// stops the others.
type Dispatcher struct {
	sender     Sender
	adminEmail string
	siteURL    string
	senderName string
	location   *time.Location
	log        *slog.Logger

	clientTmpl *template.Template
	adminTmpl  *template.Template
}

func NewDispatcher(sender Sender, adminEmail, siteURL, senderName string, location *time.Location, log *slog.Logger) *Dispatcher {
	if location == nil {
		location = time.UTC
	}
	return &Dispatcher{
		sender:     sender,
		adminEmail: strings.TrimSpace(adminEmail),
		siteURL:    strings.TrimRight(siteURL, "/"),
		senderName: senderName,
		location:   location,
		log:        log,
		clientTmpl: clientConfirmationTmpl,
		adminTmpl:  adminNotificationTmpl,
	}
}

// sendAll delivers every message and returns the joined failures. The
// errgroup is used without a derived context so one failure does not
// cancel the sends still in flight.
func (d *Dispatcher) sendAll(ctx context.Context, kind string, msgs ...Message) error {
	var (
		g    errgroup.Group
		errs = make([]error, len(msgs))
	)
	for i, msg := range msgs {
		if msg.To == "" {
			continue
		}
		g.Go(func() error {
			id, err := d.sender.Send(ctx, msg)
			if err != nil {
				errs[i] = fmt.Errorf("%s to %s: %w", kind, msg.To, err)
				return nil
			}
			d.log.Info("mail send: ok",
				slog.String("kind", kind),
				slog.String("to", msg.To),
				slog.String("message_id", id),
			)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// ReservationCreated sends the client confirmation and the admin notice.
// A message whose HTML body fails to render goes out as plain text.
func (d *Dispatcher) ReservationCreated(ctx context.Context, r reservations.Reservation) error {
	v := d.view(r)

	var renderErrs []error
	clientHTML, err := render(d.clientTmpl, v)
	if err != nil {
		renderErrs = append(renderErrs, fmt.Errorf("render client confirmation: %w", err))
	}
	adminHTML, err := render(d.adminTmpl, v)
	if err != nil {
		renderErrs = append(renderErrs, fmt.Errorf("render admin notification: %w", err))
	}

	client := Message{
		To:      r.ClientEmail,
		ToName:  r.ClientName,
		Subject: "Votre demande de rendez-vous est bien enregistrée",
		Text:    clientConfirmationText(v),
		HTML:    clientHTML,
	}
	admin := Message{
		To:      d.adminEmail,
		Subject: fmt.Sprintf("Nouvelle réservation : %s (%s %s)", r.ClientName, v.Date, v.Start),
		Text:    adminNotificationText(v),
		HTML:    adminHTML,
		ReplyTo: r.ClientEmail,
	}
	sendErr := d.sendAll(ctx, "reservation created", client, admin)
	return errors.Join(append(renderErrs, sendErr)...)
}

func (d *Dispatcher) ReservationCancelled(ctx context.Context, r reservations.Reservation) error {
	v := d.view(r)
	client := Message{
		To:      r.ClientEmail,
		ToName:  r.ClientName,
		Subject: "Votre rendez-vous a été annulé",
		Text:    cancellationText(v, false),
	}
	admin := Message{
		To:      d.adminEmail,
		Subject: fmt.Sprintf("Réservation annulée : %s (%s)", r.ClientName, formatDay(r.StartTime, d.location)),
		Text:    cancellationText(v, true),
		ReplyTo: r.ClientEmail,
	}
	return d.sendAll(ctx, "reservation cancelled", client, admin)
}

// ContactNotice is the part of a contact form submission the emails need.
type ContactNotice struct {
	ID      string
	Name    string
	Email   string
	Phone   string
	Subject string
	Message string
}

func (d *Dispatcher) ContactReceived(ctx context.Context, c ContactNotice) error {
	var adminText strings.Builder
	fmt.Fprintf(&adminText, "Nouveau message de %s <%s>\n", c.Name, c.Email)
	if c.Phone != "" {
		fmt.Fprintf(&adminText, "Téléphone : %s\n", c.Phone)
	}
	fmt.Fprintf(&adminText, "Sujet : %s\n\n%s\n\n%s/admin/messages/%s\n", c.Subject, c.Message, d.siteURL, c.ID)

	admin := Message{
		To:      d.adminEmail,
		Subject: "Nouveau message : " + c.Subject,
		Text:    adminText.String(),
		ReplyTo: c.Email,
	}
	ack := Message{
		To:      c.Email,
		ToName:  c.Name,
		Subject: "Nous avons bien reçu votre message",
		Text: fmt.Sprintf("Bonjour %s,\n\nMerci pour votre message, nous revenons vers vous sous 48 heures ouvrées.\n\n%s\n",
			c.Name, d.senderName),
	}
	return d.sendAll(ctx, "contact received", admin, ack)
}
